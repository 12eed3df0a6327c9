package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFakeTickerFiresOnDeadline(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	f := NewFake(start)
	tk := f.NewTicker(time.Hour)
	defer tk.Stop()

	f.Advance(30 * time.Minute)
	select {
	case <-tk.C():
		t.Fatal("ticker fired early")
	default:
	}

	f.Advance(30 * time.Minute)
	select {
	case got := <-tk.C():
		assert.Equal(t, start.Add(time.Hour), got)
	default:
		t.Fatal("ticker did not fire")
	}
}

func TestFakeTickerDropsUnconsumedTicks(t *testing.T) {
	f := NewFake(time.Unix(0, 0))
	tk := f.NewTicker(time.Minute)

	f.Advance(time.Minute)
	f.Advance(time.Minute)
	<-tk.C()
	select {
	case <-tk.C():
		t.Fatal("expected second tick to be dropped")
	default:
	}

	tk.Stop()
	require.Equal(t, 0, f.Tickers())
}
