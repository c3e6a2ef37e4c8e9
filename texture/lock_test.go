package texture

import (
	"errors"
	"runtime"
	"sync"
	"testing"

	"github.com/gogpu/gputypes"
	"golang.org/x/sync/errgroup"

	"github.com/gogpu/gpustate/gpucore"
)

func mockLockCache(dev *mockDevice) *LockCache {
	return NewLockCache(dev, 1, Info{
		Width: 64, Height: 64, MipLevels: 3, ArrayCount: 4,
		Format: gputypes.TextureFormatRGBA8Unorm,
	})
}

func TestLockCache_LockIsIdempotent(t *testing.T) {
	dev := newMockDevice()
	c := mockLockCache(dev)

	a, err := c.Lock(gpucore.MapRead, 0, 0)
	if err != nil {
		t.Fatalf("Lock() error: %v", err)
	}
	b, err := c.Lock(gpucore.MapRead, 0, 0)
	if err != nil {
		t.Fatalf("Lock() error: %v", err)
	}
	if a != b {
		t.Error("locking a locked sub-resource should return the existing lock")
	}
	if dev.mapCount(0) != 1 {
		t.Errorf("expected a single native map, got %d", dev.mapCount(0))
	}
	if !c.HasLocks() {
		t.Error("HasLocks should report the active lock")
	}
}

func TestLockCache_UnlockThenLockIsNew(t *testing.T) {
	dev := newMockDevice()
	c := mockLockCache(dev)

	a, _ := c.Lock(gpucore.MapWrite, 1, 2)
	a.Unlock()

	if !a.IsDisposed() {
		t.Error("unlocked data should be disposed")
	}
	if c.HasLocks() {
		t.Error("cache should be empty after Unlock")
	}
	sub := gpucore.CalcSubresource(1, 2, 3)
	if dev.unmaps[sub] != 1 {
		t.Errorf("expected sub-resource %d unmapped once, got %d", sub, dev.unmaps[sub])
	}

	b, err := c.Lock(gpucore.MapWrite, 1, 2)
	if err != nil {
		t.Fatalf("Lock() error: %v", err)
	}
	if b == a {
		t.Error("re-locking after Unlock should produce a new lock")
	}
	if dev.mapCount(sub) != 2 {
		t.Errorf("expected 2 native maps, got %d", dev.mapCount(sub))
	}
}

func TestLockCache_UnlockUnknownIsNoop(t *testing.T) {
	dev := newMockDevice()
	c := mockLockCache(dev)

	a, _ := c.Lock(gpucore.MapRead, 0, 0)
	c.Unlock(a)
	c.Unlock(a)
	c.Unlock(nil)

	if dev.unmaps[0] != 1 {
		t.Errorf("expected exactly one unmap, got %d", dev.unmaps[0])
	}
}

func TestLockCache_StaleUnlockKeepsNewerLock(t *testing.T) {
	dev := newMockDevice()
	c := mockLockCache(dev)

	a, err := c.Lock(gpucore.MapRead, 0, 0)
	if err != nil {
		t.Fatalf("Lock() error: %v", err)
	}
	a.Unlock()

	b, err := c.Lock(gpucore.MapRead, 0, 0)
	if err != nil {
		t.Fatalf("Lock() error: %v", err)
	}
	a.Unlock()

	if b.IsDisposed() {
		t.Error("releasing a stale lock disposed the newer one")
	}
	if !c.HasLocks() {
		t.Error("newer lock should still be cached")
	}
	if dev.unmaps[0] != 1 {
		t.Errorf("expected one unmap, got %d", dev.unmaps[0])
	}

	b.Unlock()
	if dev.unmaps[0] != 2 || c.HasLocks() {
		t.Errorf("after releasing the newer lock: unmaps=%d HasLocks=%v", dev.unmaps[0], c.HasLocks())
	}
}

// disposingMapper disposes its cache while the first native map is in
// flight.
type disposingMapper struct {
	*mockDevice
	cache    *LockCache
	once     sync.Once
	disposed chan struct{}
}

func (m *disposingMapper) MapSubresource(tex gpucore.TextureID, sub int, mode gpucore.MapMode) (gpucore.MappedSubresource, error) {
	m.once.Do(func() {
		go func() {
			m.cache.Dispose()
			close(m.disposed)
		}()
		// Dispose swaps the map before it drains, and draining waits for
		// the shard lock this call holds.
		for m.cache.locks.Load() != nil {
			runtime.Gosched()
		}
	})
	return m.mockDevice.MapSubresource(tex, sub, mode)
}

func TestLockCache_LockRacingDispose(t *testing.T) {
	dev := newMockDevice()
	m := &disposingMapper{mockDevice: dev, disposed: make(chan struct{})}
	c := NewLockCache(m, 1, Info{
		Width: 64, Height: 64, MipLevels: 3, ArrayCount: 4,
		Format: gputypes.TextureFormatRGBA8Unorm,
	})
	m.cache = c

	if _, err := c.Lock(gpucore.MapWrite, 0, 0); !errors.Is(err, ErrDisposed) {
		t.Fatalf("Lock during Dispose error = %v, want ErrDisposed", err)
	}
	<-m.disposed

	if dev.mapCount(0) != 1 {
		t.Fatalf("expected one native map, got %d", dev.mapCount(0))
	}
	dev.mu.Lock()
	unmaps := dev.unmaps[0]
	dev.mu.Unlock()
	if unmaps != 1 {
		t.Errorf("map issued during Dispose should be unmapped once, got %d", unmaps)
	}
}

func TestLockCache_LockData(t *testing.T) {
	c := mockLockCache(newMockDevice())
	ld, err := c.Lock(gpucore.MapRead, 2, 0)
	if err != nil {
		t.Fatalf("Lock() error: %v", err)
	}
	if ld.Width != 16 || ld.Height != 16 || ld.Depth != 1 {
		t.Errorf("mip 2 size = %dx%dx%d, want 16x16x1", ld.Width, ld.Height, ld.Depth)
	}
	if ld.Format != gputypes.TextureFormatRGBA8Unorm || ld.RowPitch != 16 || len(ld.Data) != 64 {
		t.Errorf("unexpected mapping: format=%v row=%d len=%d", ld.Format, ld.RowPitch, len(ld.Data))
	}
}

func TestLockCache_MapErrorIsNotCached(t *testing.T) {
	dev := newMockDevice()
	dev.mapErr = errors.New("device lost")
	c := mockLockCache(dev)

	if _, err := c.Lock(gpucore.MapRead, 0, 0); !errors.Is(err, dev.mapErr) {
		t.Fatalf("expected wrapped map error, got %v", err)
	}
	if c.HasLocks() {
		t.Error("failed lock must not be cached")
	}

	dev.mapErr = nil
	if _, err := c.Lock(gpucore.MapRead, 0, 0); err != nil {
		t.Errorf("lock should succeed once the device recovers: %v", err)
	}
}

func TestLockCache_Dispose(t *testing.T) {
	dev := newMockDevice()
	c := mockLockCache(dev)

	a, _ := c.Lock(gpucore.MapRead, 0, 0)
	b, _ := c.Lock(gpucore.MapRead, 1, 1)

	c.Dispose()
	c.Dispose()

	if !a.IsDisposed() || !b.IsDisposed() {
		t.Error("remaining locks should be disposed")
	}
	if len(dev.unmaps) != 0 {
		t.Error("Dispose must not unmap")
	}
	if c.HasLocks() {
		t.Error("disposed cache has no locks")
	}
	if _, err := c.Lock(gpucore.MapRead, 0, 0); !errors.Is(err, ErrDisposed) {
		t.Errorf("Lock after Dispose error = %v, want ErrDisposed", err)
	}

	// Unlock after Dispose is a no-op.
	a.Unlock()
	if len(dev.unmaps) != 0 {
		t.Error("Unlock after Dispose must not unmap")
	}
}

// Concurrent first locks of a never-locked sub-resource share one native map.
func TestLockCache_ConcurrentFirstLockMapsOnce(t *testing.T) {
	dev := newMockDevice()
	c := mockLockCache(dev)

	const workers = 32
	results := make([]*LockData, workers)
	start := make(chan struct{})

	var g errgroup.Group
	for i := range workers {
		g.Go(func() error {
			<-start
			ld, err := c.Lock(gpucore.MapRead, 0, 0)
			results[i] = ld
			return err
		})
	}
	close(start)
	if err := g.Wait(); err != nil {
		t.Fatalf("Lock() error: %v", err)
	}

	for _, ld := range results {
		if ld != results[0] {
			t.Fatal("every caller should receive the same lock")
		}
	}
	if dev.mapCount(0) != 1 {
		t.Errorf("expected one native map, got %d", dev.mapCount(0))
	}
}

func TestLockCache_ConcurrentDistinctKeys(t *testing.T) {
	dev := newMockDevice()
	c := mockLockCache(dev)

	var wg sync.WaitGroup
	for mip := range 3 {
		for array := range 4 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for range 50 {
					ld, err := c.Lock(gpucore.MapRead, mip, array)
					if err != nil {
						t.Errorf("Lock() error: %v", err)
						return
					}
					c.Unlock(ld)
				}
			}()
		}
	}
	wg.Wait()

	if c.HasLocks() {
		t.Error("every lock was released")
	}
	for sub := range 12 {
		if got := dev.mapCount(sub); got != 50 {
			t.Errorf("sub-resource %d mapped %d times, want 50", sub, got)
		}
	}
}
