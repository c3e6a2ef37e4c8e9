package state

import (
	"fmt"
	"log/slog"
	"reflect"
	"sync"

	"github.com/gogpu/gpustate"
	"github.com/gogpu/gpustate/gpucore"
)

// SamplerCacheCapacity is the number of sampler entries preallocated by a
// SamplerStateFactory.
const SamplerCacheCapacity = 4096

type samplerEntry struct {
	device SamplerDevice
	desc   SamplerStateDesc
	id     gpucore.SamplerID
}

// SamplerStateFactory hands out one native sampler per distinct sampler
// description and device.
//
// A rendering context creates one factory and passes it to everything that
// needs samplers; ClearCache is called when the device is lost or reset.
// Sampler descriptions are low-cardinality, so the factory keeps a flat
// list and never evicts.
//
// SamplerStateFactory is safe for concurrent use.
type SamplerStateFactory struct {
	mu      sync.Mutex
	entries []samplerEntry
}

// NewSamplerStateFactory creates an empty factory.
func NewSamplerStateFactory() *SamplerStateFactory {
	return &SamplerStateFactory{
		entries: make([]samplerEntry, 0, SamplerCacheCapacity),
	}
}

// GetSamplerState returns the native sampler for desc on device, creating
// it on first use. Structurally equal descriptions share one sampler.
//
// Entries are keyed by device identity, so device should be a pointer.
// A device whose dynamic type is not comparable is rejected with
// ErrDeviceNotComparable.
//
// logger receives creation diagnostics; nil uses the package logger.
func (f *SamplerStateFactory) GetSamplerState(device SamplerDevice, desc *SamplerStateDesc, logger *slog.Logger) (gpucore.SamplerID, error) {
	if device == nil {
		return gpucore.InvalidID, ErrNilDevice
	}
	if desc == nil {
		return gpucore.InvalidID, ErrNilSamplerDesc
	}
	if !reflect.TypeOf(device).Comparable() {
		return gpucore.InvalidID, ErrDeviceNotComparable
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	for i := range f.entries {
		e := &f.entries[i]
		if e.id != gpucore.InvalidID && e.device == device && e.desc == *desc {
			return e.id, nil
		}
	}

	id, err := device.CreateSampler(desc)
	if err != nil {
		return gpucore.InvalidID, fmt.Errorf("state: create sampler: %w", err)
	}
	if id == gpucore.InvalidID {
		return gpucore.InvalidID, fmt.Errorf("state: create sampler: %w", ErrInvalidNativeID)
	}

	f.entries = append(f.entries, samplerEntry{device: device, desc: *desc, id: id})

	gpustate.LoggerOr(logger).Debug("state: sampler created",
		"id", uint64(id),
		"cached", len(f.entries))

	return id, nil
}

// ClearCache destroys every cached sampler and empties the factory.
func (f *SamplerStateFactory) ClearCache() {
	f.mu.Lock()
	defer f.mu.Unlock()

	for i := range f.entries {
		e := &f.entries[i]
		if e.id != gpucore.InvalidID {
			e.device.DestroySampler(e.id)
		}
	}
	n := len(f.entries)
	clear(f.entries)
	f.entries = f.entries[:0]

	gpustate.Logger().Info("state: sampler cache cleared", "entries", n)
}

// Len returns the number of cached samplers.
func (f *SamplerStateFactory) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.entries)
}
