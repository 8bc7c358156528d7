package paircount

import (
	"log/slog"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/ethereum/go-ethereum/metrics"

	"github.com/cosmoslab/twopt/common"
)

// pairMeter logs traversal progress at a fixed cadence: pairs decided
// so far and the going rate. Workers mark it concurrently; the metrics
// meter is internally synchronized.
type pairMeter struct {
	ident   string
	started time.Time
	ticker  *time.Ticker
	done    chan struct{}
	reg     metrics.Registry
	count   metrics.Counter
	rate    metrics.Meter
}

func newPairMeter(ident string, interval time.Duration) *pairMeter {
	// Won't record without the global switch.
	metrics.Enabled = true

	m := &pairMeter{
		ident:   ident,
		started: time.Now(),
		ticker:  time.NewTicker(interval),
		done:    make(chan struct{}),
		reg:     metrics.NewRegistry(),
		count:   metrics.NewCounter(),
		rate:    metrics.NewMeter(),
	}
	if err := m.reg.Register("pairs.count", m.count); err != nil {
		panic(err)
	}
	if err := m.reg.Register("pairs.rate", m.rate); err != nil {
		panic(err)
	}
	go m.run()
	return m
}

func (m *pairMeter) mark(n int64) {
	m.count.Inc(n)
	m.rate.Mark(n)
}

func (m *pairMeter) run() {
	for {
		select {
		case <-m.done:
			return
		case <-m.ticker.C:
			snap := m.rate.Snapshot()
			slog.Info("Counting pairs",
				"ident", m.ident,
				"pairs", humanize.Comma(snap.Count()),
				"rate/s", humanize.SIWithDigits(snap.Rate1(), 1, ""),
				"elapsed", time.Since(m.started).Round(time.Second))
		}
	}
}

func (m *pairMeter) stop() {
	m.ticker.Stop()
	close(m.done)
	snap := m.rate.Snapshot()
	m.rate.Stop()
	took := time.Since(m.started)
	avg := 0.0
	if s := took.Seconds(); s > 0 {
		avg = float64(snap.Count()) / s
	}
	slog.Info("Pair count done",
		"ident", m.ident,
		"pairs", humanize.Comma(snap.Count()),
		"avg/s", common.DecimalToFixed(avg, 0),
		"took", took.Round(time.Millisecond))
}
