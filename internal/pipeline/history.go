package pipeline

import (
	"sync"
	"time"
)

type weightSample struct {
	weight float64
	at     time.Time
}

// weightHistory keeps the last weight per device:tag for feed rate.
type weightHistory struct {
	mu      sync.Mutex
	samples map[string]weightSample
}

func newWeightHistory() *weightHistory {
	return &weightHistory{samples: make(map[string]weightSample)}
}

func historyKey(deviceID, tag string) string {
	return deviceID + ":" + tag
}

func (h *weightHistory) last(key string) (weightSample, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	s, ok := h.samples[key]
	return s, ok
}

func (h *weightHistory) store(key string, s weightSample) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.samples[key] = s
}

func (h *weightHistory) reset() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.samples = make(map[string]weightSample)
}
