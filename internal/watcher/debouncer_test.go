package watcher

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collectBatch(t *testing.T, d *Debouncer) []FileEvent {
	t.Helper()
	select {
	case batch := <-d.Output():
		return batch
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for debounced batch")
		return nil
	}
}

func TestDebouncerCoalescesCreateModify(t *testing.T) {
	d := NewDebouncer(20 * time.Millisecond)
	defer d.Stop()

	d.Add(FileEvent{Path: "a.swift", Operation: OpCreate})
	d.Add(FileEvent{Path: "a.swift", Operation: OpModify})

	batch := collectBatch(t, d)
	require.Len(t, batch, 1)
	assert.Equal(t, OpCreate, batch[0].Operation)
}

func TestDebouncerCreateDeleteCancels(t *testing.T) {
	d := NewDebouncer(20 * time.Millisecond)
	defer d.Stop()

	d.Add(FileEvent{Path: "a.swift", Operation: OpCreate})
	d.Add(FileEvent{Path: "a.swift", Operation: OpDelete})
	// An unrelated path keeps the flush observable.
	d.Add(FileEvent{Path: "b.swift", Operation: OpModify})

	batch := collectBatch(t, d)
	require.Len(t, batch, 1)
	assert.Equal(t, "b.swift", batch[0].Path)
}

func TestDebouncerDeleteCreateBecomesModify(t *testing.T) {
	d := NewDebouncer(20 * time.Millisecond)
	defer d.Stop()

	d.Add(FileEvent{Path: "a.swift", Operation: OpDelete})
	d.Add(FileEvent{Path: "a.swift", Operation: OpCreate})

	batch := collectBatch(t, d)
	require.Len(t, batch, 1)
	assert.Equal(t, OpModify, batch[0].Operation)
}

func TestDebouncerModifyDeleteKeepsDelete(t *testing.T) {
	d := NewDebouncer(20 * time.Millisecond)
	defer d.Stop()

	d.Add(FileEvent{Path: "a.swift", Operation: OpModify})
	d.Add(FileEvent{Path: "a.swift", Operation: OpDelete})

	batch := collectBatch(t, d)
	require.Len(t, batch, 1)
	assert.Equal(t, OpDelete, batch[0].Operation)
}

func TestDebouncerSeparatePathsBothEmitted(t *testing.T) {
	d := NewDebouncer(20 * time.Millisecond)
	defer d.Stop()

	d.Add(FileEvent{Path: "a.swift", Operation: OpModify})
	d.Add(FileEvent{Path: "b.swift", Operation: OpModify})

	batch := collectBatch(t, d)
	assert.Len(t, batch, 2)
}

func TestDebouncerStopIdempotent(t *testing.T) {
	d := NewDebouncer(20 * time.Millisecond)
	d.Stop()
	d.Stop()

	// Adds after stop are dropped silently.
	d.Add(FileEvent{Path: "a.swift", Operation: OpModify})
}
