package openfile

import (
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/fsbroker/pkg/backend"
)

func TestInsertLookup(t *testing.T) {
	tbl := NewTable()

	in := backend.NewMemoryInput([]byte("abc"))
	id := tbl.Insert(&Handle{Path: "/a", Owner: "c1", Input: in})
	assert.Equal(t, int32(1), id)

	h, ok := tbl.Lookup(id)
	require.True(t, ok)
	assert.Equal(t, id, h.ID)
	assert.Equal(t, "/a", h.Path)
	assert.Equal(t, "read", h.Mode())
	assert.False(t, h.Created.IsZero())
	assert.Same(t, in, h.Input)

	_, ok = tbl.Lookup(99)
	assert.False(t, ok)
	_, ok = tbl.Lookup(0)
	assert.False(t, ok)
}

func TestIdsAreFreshAndPositive(t *testing.T) {
	tbl := NewTable()

	seen := make(map[int32]bool)
	for i := 0; i < 100; i++ {
		id := tbl.Insert(&Handle{})
		assert.Positive(t, id)
		assert.False(t, seen[id], "id %d reused", id)
		seen[id] = true
	}

	first := tbl.Insert(&Handle{})
	_, ok := tbl.Remove(first)
	require.True(t, ok)
	assert.NotEqual(t, first, tbl.Insert(&Handle{}), "ids must not be reused immediately")
}

func TestIdWrapSkipsLiveIds(t *testing.T) {
	tbl := NewTable()

	live := tbl.Insert(&Handle{Path: "/one"})
	require.Equal(t, int32(1), live)

	tbl.nextID.Store(math.MaxInt32 - 1)
	assert.Equal(t, int32(math.MaxInt32), tbl.Insert(&Handle{}))

	// Counter wraps; 1 is still live so the next id is 2.
	assert.Equal(t, int32(2), tbl.Insert(&Handle{}))
	h, _ := tbl.Lookup(1)
	assert.Equal(t, "/one", h.Path)
}

func TestRemove(t *testing.T) {
	tbl := NewTable()
	id := tbl.Insert(&Handle{Path: "/x"})
	require.Equal(t, 1, tbl.Len())

	h, ok := tbl.Remove(id)
	require.True(t, ok)
	assert.Equal(t, "/x", h.Path)
	assert.Equal(t, 0, tbl.Len())

	_, ok = tbl.Lookup(id)
	assert.False(t, ok)

	_, ok = tbl.Remove(id)
	assert.False(t, ok, "second remove must report absent")
	assert.Equal(t, 0, tbl.Len())
}

func TestConcurrentRemoveHasOneWinner(t *testing.T) {
	tbl := NewTable()
	id := tbl.Insert(&Handle{})

	const racers = 32
	var wg sync.WaitGroup
	var mu sync.Mutex
	wins := 0
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, ok := tbl.Remove(id); ok {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, wins)
	assert.Equal(t, 0, tbl.Len())
}

func TestConcurrentInsertLookup(t *testing.T) {
	tbl := NewTable()

	const workers, per = 8, 200
	ids := make(chan int32, workers*per)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < per; i++ {
				id := tbl.Insert(&Handle{})
				h, ok := tbl.Lookup(id)
				if assert.True(t, ok) {
					assert.Equal(t, id, h.ID)
				}
				ids <- id
			}
		}()
	}
	wg.Wait()
	close(ids)

	seen := make(map[int32]bool)
	for id := range ids {
		assert.False(t, seen[id])
		seen[id] = true
	}
	assert.Equal(t, workers*per, tbl.Len())
}

func TestRemoveAll(t *testing.T) {
	tbl := NewTable()
	a1 := tbl.Insert(&Handle{Owner: "a"})
	b1 := tbl.Insert(&Handle{Owner: "b"})
	a2 := tbl.Insert(&Handle{Owner: "a"})

	removed := tbl.RemoveAll("a")
	require.Len(t, removed, 2)
	assert.Equal(t, a1, removed[0].ID)
	assert.Equal(t, a2, removed[1].ID)

	_, ok := tbl.Lookup(a1)
	assert.False(t, ok)
	_, ok = tbl.Lookup(b1)
	assert.True(t, ok)
	assert.Equal(t, 1, tbl.Len())

	assert.Empty(t, tbl.RemoveAll("a"))
	assert.Empty(t, tbl.RemoveAll("nobody"))
}

func TestSnapshot(t *testing.T) {
	tbl := NewTable()

	in := backend.NewMemoryInput([]byte("abcdef"))
	_, err := in.Seek(4)
	require.NoError(t, err)
	out := backend.NewBufferedOutput(0, func([]byte) error { return nil })
	_, err = out.Write([]byte("xy"))
	require.NoError(t, err)

	tbl.Insert(&Handle{Path: "/r", Owner: "c", Input: in})
	tbl.Insert(&Handle{Path: "/w", Owner: "c", Output: out})

	snap := tbl.Snapshot()
	require.Len(t, snap, 2)
	assert.Equal(t, Info{ID: 1, Path: "/r", Owner: "c", Mode: "read", Offset: 4, Created: snap[0].Created}, snap[0])
	assert.Equal(t, "write", snap[1].Mode)
	assert.Equal(t, int64(2), snap[1].Offset)
}

func TestHandleClose(t *testing.T) {
	committed := false
	out := backend.NewBufferedOutput(0, func([]byte) error {
		committed = true
		return nil
	})
	h := &Handle{Output: out}
	require.NoError(t, h.Close())
	assert.True(t, committed)

	assert.ErrorIs(t, h.Close(), backend.ErrClosed)
}
