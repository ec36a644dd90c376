// Package openfile implements the broker's open-file table: the map from
// the int32 handle ids clients hold to the live streams behind them.
//
// Ids are allocated from a monotonically increasing counter starting at 1
// and are never reused while a handle is live. Lookups never block each
// other; Insert and Remove are atomic with respect to lookups, so a handle
// removed by one goroutine is never returned to another after the remove.
package openfile

import (
	"errors"
	"math"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/marmos91/fsbroker/pkg/backend"
)

// Handle is one open file. Exactly one of Input or Output is set.
type Handle struct {
	ID      int32
	Path    string
	Owner   string // remote address of the connection that opened it
	Input   backend.InputStream
	Output  backend.OutputStream
	Created time.Time
}

// Mode reports "read" or "write".
func (h *Handle) Mode() string {
	if h.Output != nil {
		return "write"
	}
	return "read"
}

// Offset returns the current stream position.
func (h *Handle) Offset() int64 {
	switch {
	case h.Input != nil:
		return h.Input.Offset()
	case h.Output != nil:
		return h.Output.Offset()
	}
	return 0
}

// Close closes whichever stream the handle carries.
func (h *Handle) Close() error {
	var errs []error
	if h.Input != nil {
		errs = append(errs, h.Input.Close())
	}
	if h.Output != nil {
		errs = append(errs, h.Output.Close())
	}
	return errors.Join(errs...)
}

// Info returns a point-in-time view of h.
func (h *Handle) Info() Info {
	return Info{
		ID:      h.ID,
		Path:    h.Path,
		Owner:   h.Owner,
		Mode:    h.Mode(),
		Offset:  h.Offset(),
		Created: h.Created,
	}
}

// Info is a point-in-time view of a handle for operator listings.
type Info struct {
	ID      int32     `json:"id"`
	Path    string    `json:"path"`
	Owner   string    `json:"owner"`
	Mode    string    `json:"mode"`
	Offset  int64     `json:"offset"`
	Created time.Time `json:"created"`
}

// Table maps handle ids to open handles. The zero value is not usable;
// call NewTable.
type Table struct {
	handles sync.Map // int32 -> *Handle
	nextID  atomic.Int32
	count   atomic.Int64
}

// NewTable returns an empty table.
func NewTable() *Table {
	return &Table{}
}

// Insert stores h under a fresh id, sets h.ID and returns the id. Ids are
// always positive. After 2^31-1 allocations the counter wraps to 1 and
// skips ids that are still live.
func (t *Table) Insert(h *Handle) int32 {
	if h.Created.IsZero() {
		h.Created = time.Now()
	}
	for {
		id := t.allocate()
		h.ID = id
		if _, loaded := t.handles.LoadOrStore(id, h); !loaded {
			t.count.Add(1)
			return id
		}
	}
}

func (t *Table) allocate() int32 {
	for {
		cur := t.nextID.Load()
		next := cur + 1
		if cur == math.MaxInt32 {
			next = 1
		}
		if t.nextID.CompareAndSwap(cur, next) {
			return next
		}
	}
}

// Lookup returns the handle for id. The pointer is non-owning: it stays
// valid for the duration of one command even if another goroutine removes
// the entry meanwhile.
func (t *Table) Lookup(id int32) (*Handle, bool) {
	v, ok := t.handles.Load(id)
	if !ok {
		return nil, false
	}
	return v.(*Handle), true
}

// Remove detaches the handle for id and returns it. Of two concurrent
// removes of the same id exactly one gets the handle; the other reports
// false. The caller owns the returned handle and must close it.
func (t *Table) Remove(id int32) (*Handle, bool) {
	v, ok := t.handles.LoadAndDelete(id)
	if !ok {
		return nil, false
	}
	t.count.Add(-1)
	return v.(*Handle), true
}

// RemoveAll detaches every handle owned by owner, ordered by id. Used on
// connection teardown.
func (t *Table) RemoveAll(owner string) []*Handle {
	var ids []int32
	t.handles.Range(func(k, v any) bool {
		if v.(*Handle).Owner == owner {
			ids = append(ids, k.(int32))
		}
		return true
	})

	removed := make([]*Handle, 0, len(ids))
	for _, id := range ids {
		if h, ok := t.Remove(id); ok {
			removed = append(removed, h)
		}
	}
	sort.Slice(removed, func(i, j int) bool { return removed[i].ID < removed[j].ID })
	return removed
}

// Len returns the number of live handles.
func (t *Table) Len() int {
	return int(t.count.Load())
}

// Snapshot lists the live handles ordered by id.
func (t *Table) Snapshot() []Info {
	out := make([]Info, 0, t.Len())
	t.handles.Range(func(_, v any) bool {
		out = append(out, v.(*Handle).Info())
		return true
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
