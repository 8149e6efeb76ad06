package domain

import (
	"math"
	"strconv"
	"strings"
)

// BoundsQuery is a raw geographic box as supplied by the caller: the north-west
// corner (LatN, LngW) and the south-east corner (LatS, LngE). It may be
// degenerate or lie outside the grid; extraction clamps rather than rejects.
type BoundsQuery struct {
	LatN float64
	LngW float64
	LatS float64
	LngE float64
}

// ParseBounds parses "latN,lngW,latS,lngE". Only shape errors are rejected;
// coordinates outside any grid are left for clamping.
func ParseBounds(s string) (BoundsQuery, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return BoundsQuery{}, &ValidationError{Field: "bounds", Reason: "expected latN,lngW,latS,lngE"}
	}

	var vals [4]float64
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			return BoundsQuery{}, &ValidationError{Field: "bounds", Reason: "not a number: " + strings.TrimSpace(p)}
		}
		vals[i] = v
	}

	return BoundsQuery{LatN: vals[0], LngW: vals[1], LatS: vals[2], LngE: vals[3]}, nil
}

// String formats the query the way ParseBounds reads it.
func (q BoundsQuery) String() string {
	f := func(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }
	return f(q.LatN) + "," + f(q.LngW) + "," + f(q.LatS) + "," + f(q.LngE)
}
