package telemetry

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWindow_PrunesRelativeToLatestWrite(t *testing.T) {
	w := NewWindow[int](time.Hour)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	w.Record(base, 1)
	w.Record(base.Add(30*time.Minute), 2)
	assert.Equal(t, 2, w.Len())

	// exactly one span later the first entry is no longer inside the window
	w.Record(base.Add(time.Hour), 3)
	entries := w.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, 2, entries[0].Value)
	assert.Equal(t, 3, entries[1].Value)

	w.Record(base.Add(time.Hour+time.Millisecond-1), 4)
	assert.Equal(t, 3, w.Len())
}

func TestWindow_TwoHourSpread(t *testing.T) {
	w := NewWindow[int](time.Hour)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	// one event every 7 minutes across two hours
	var stamps []time.Time
	for at := base; at.Before(base.Add(2 * time.Hour)); at = at.Add(7 * time.Minute) {
		stamps = append(stamps, at)
		w.Record(at, 0)
	}

	latest := stamps[len(stamps)-1]
	want := 0
	for _, at := range stamps {
		if latest.Sub(at) < time.Hour {
			want++
		}
	}
	assert.Equal(t, want, w.Len())
}

func TestWindow_EntriesIsACopy(t *testing.T) {
	w := NewWindow[string](time.Hour)
	now := time.Now()
	w.Record(now, "a")

	entries := w.Entries()
	entries[0].Value = "changed"
	assert.Equal(t, "a", w.Entries()[0].Value)
}

func TestWindow_ConcurrentRecord(t *testing.T) {
	w := NewWindow[int](time.Hour)
	now := time.Now()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			w.Record(now, i)
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 50, w.Len())
}
