package bufpool

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetSizeClasses(t *testing.T) {
	tests := []struct {
		name    string
		size    int
		wantCap int
	}{
		{"Zero", 0, MinSize},
		{"Tiny", 8, MinSize},
		{"ExactMin", MinSize, MinSize},
		{"JustAboveMin", MinSize + 1, 2 * MinSize},
		{"Mid", 100 << 10, 128 << 10},
		{"ExactMax", MaxSize, MaxSize},
		{"Oversized", MaxSize + 1, MaxSize + 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := Get(tt.size)
			defer Put(buf)

			assert.Len(t, buf, tt.size)
			assert.Equal(t, tt.wantCap, cap(buf))
		})
	}
}

func TestNegativeSize(t *testing.T) {
	buf := Get(-3)
	assert.Len(t, buf, 0)
	Put(buf)
}

func TestPutIgnoresForeignBuffers(t *testing.T) {
	p := NewPool(1024, 4096)

	assert.NotPanics(t, func() {
		p.Put(nil)
		p.Put(make([]byte, 1000))  // not a power of two
		p.Put(make([]byte, 512))   // below smallest class
		p.Put(make([]byte, 1<<20)) // above largest class
	})
}

func TestReuse(t *testing.T) {
	p := NewPool(1024, 4096)

	buf := p.Get(2000)
	assert.Equal(t, 2048, cap(buf))
	buf[0] = 0xAB
	p.Put(buf)

	again := p.Get(1500)
	assert.Len(t, again, 1500)
	assert.Equal(t, 2048, cap(again))
}

func TestCustomPoolDefaults(t *testing.T) {
	p := NewPool(0, 0)
	buf := p.Get(1)
	assert.Equal(t, MinSize, cap(buf))

	big := p.Get(MaxSize)
	assert.Equal(t, MaxSize, cap(big))
}

func TestConcurrentAccess(t *testing.T) {
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				b := Get((n*j)%(256<<10) + 1)
				b[0] = byte(j)
				Put(b)
			}
		}(i)
	}
	wg.Wait()
}

func BenchmarkGetPut(b *testing.B) {
	for i := 0; i < b.N; i++ {
		buf := Get(64 << 10)
		Put(buf)
	}
}
