package catalog

import (
	"log/slog"

	"github.com/montanaflynn/stats"
)

// Summary is a loggable digest of a catalog, computed on demand.
type Summary struct {
	Label      string
	N          int
	SumW       float64
	MeanW      float64
	MedianW    float64
	Span       [3]float64
	Min, Max   [3]float64
	Unweighted bool
}

func (c *Catalog) Summarize() Summary {
	s := Summary{
		Label:      c.Label,
		N:          c.Len(),
		SumW:       c.sumW,
		Min:        c.min,
		Max:        c.max,
		Unweighted: c.W == nil,
	}
	for ax := 0; ax < 3; ax++ {
		s.Span[ax] = c.max[ax] - c.min[ax]
	}
	if c.W != nil {
		// stats errors only on empty input, which New forbids.
		s.MeanW, _ = stats.Mean(c.W)
		s.MedianW, _ = stats.Median(c.W)
	} else {
		s.MeanW, s.MedianW = 1, 1
	}
	return s
}

// LogValue lets a Summary be logged wholesale: slog.Info("...", "catalog", cat.Summarize()).
func (s Summary) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("label", s.Label),
		slog.Int("n", s.N),
		slog.Float64("sum-w", s.SumW),
		slog.Float64("mean-w", s.MeanW),
		slog.Float64("median-w", s.MedianW),
		slog.Any("span", s.Span),
	)
}
