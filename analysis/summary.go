package analysis

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

type Summary struct {
	Episodes int     `json:"episodes"`
	Mean     float64 `json:"mean"`
	StdDev   float64 `json:"std_dev"`
	Min      float64 `json:"min"`
	Max      float64 `json:"max"`
}

// Summarize never produces NaN so the result always encodes as JSON.
func Summarize(scores []float64) *Summary {
	s := &Summary{Episodes: len(scores)}
	switch len(scores) {
	case 0:
		return s
	case 1:
		s.Mean = scores[0]
	default:
		s.Mean, s.StdDev = stat.MeanStdDev(scores, nil)
	}
	s.Min = floats.Min(scores)
	s.Max = floats.Max(scores)
	return s
}
