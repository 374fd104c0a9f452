package coordinator

import (
	"sync"
	"time"
)

// DefaultDebounceWindow is the echo suppression window applied after a
// local write when no window is configured.
const DefaultDebounceWindow = 3 * time.Second

// pendingKey identifies a pending write marker.
type pendingKey struct {
	datapointID string
	key         string
}

// pendingWrite records a locally issued write awaiting its hub echo.
type pendingWrite struct {
	value  string
	issued time.Time
}

// Debouncer suppresses stale hub echoes after local writes.
//
// After a write, the hub streams back intermediate values (dimming ramps,
// rounding artifacts) that would make consumers flicker. The debouncer
// keeps one marker per (datapoint, key): echoes that match the written
// value confirm the write and clear the marker; differing echoes inside
// the window are suppressed; once the window expires everything is
// accepted again.
//
// Thread Safety:
//   - All methods are safe for concurrent use.
type Debouncer struct {
	window  time.Duration
	now     func() time.Time
	pending map[pendingKey]pendingWrite
	mu      sync.Mutex
}

// NewDebouncer creates a debouncer with the given suppression window.
//
// Parameters:
//   - window: Echo suppression window; <= 0 uses DefaultDebounceWindow
//   - now: Clock function; nil uses time.Now (injectable for tests)
func NewDebouncer(window time.Duration, now func() time.Time) *Debouncer {
	if window <= 0 {
		window = DefaultDebounceWindow
	}
	if now == nil {
		now = time.Now
	}
	return &Debouncer{
		window:  window,
		now:     now,
		pending: make(map[pendingKey]pendingWrite),
	}
}

// MarkWrite records a locally issued write for (datapointID, key).
//
// A newer write for the same pair supersedes any previous marker and
// restarts the window.
func (d *Debouncer) MarkWrite(datapointID, key, value string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pending[pendingKey{datapointID, key}] = pendingWrite{
		value:  value,
		issued: d.now(),
	}
}

// ShouldSuppress decides whether an incoming echo for (datapointID, key)
// must be dropped.
//
// Rules:
//   - No marker → accept
//   - Marker expired → clear, accept
//   - Echo equals the written value → confirmed, clear, accept
//   - Echo differs inside the window → suppress (stale intermediate)
//
// Returns:
//   - bool: true when the echo must be dropped
func (d *Debouncer) ShouldSuppress(datapointID, key, incoming string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	k := pendingKey{datapointID, key}
	pw, ok := d.pending[k]
	if !ok {
		return false
	}

	if d.now().Sub(pw.issued) >= d.window {
		delete(d.pending, k)
		return false
	}

	if incoming == pw.value {
		// The hub confirmed our write.
		delete(d.pending, k)
		return false
	}

	return true
}

// PendingCount returns the number of outstanding write markers.
func (d *Debouncer) PendingCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.pending)
}
