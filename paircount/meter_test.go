package paircount

import (
	"log/slog"
	"testing"
	"time"

	"github.com/cosmoslab/twopt/common"
)

func TestPairMeter(t *testing.T) {
	defer common.SlogResetLevel(slog.LevelWarn + 1)()

	m := newPairMeter("DD", time.Millisecond)
	for i := 0; i < 10; i++ {
		m.mark(1000)
	}
	time.Sleep(5 * time.Millisecond)
	if got := m.rate.Snapshot().Count(); got != 10000 {
		t.Errorf("Expected 10000 marked pairs, got %d", got)
	}
	m.stop()
}
