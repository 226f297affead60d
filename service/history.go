package service

import (
	"github.com/Go-routine-4595/iba-monitor/model"
)

const DefaultHistoryCapacity = 50

// History keeps the most recent samples of each signal in arrival order.
// It is not safe for concurrent use; Session serializes access.
type History struct {
	capacity int
	series   map[string][]model.SignalValue
}

func NewHistory(capacity int) *History {
	if capacity <= 0 {
		capacity = DefaultHistoryCapacity
	}
	return &History{
		capacity: capacity,
		series:   make(map[string][]model.SignalValue),
	}
}

func (h *History) Capacity() int {
	return h.capacity
}

// Append adds v to its signal's series, evicting the oldest entry once the
// capacity is reached. Timestamps play no part in ordering.
func (h *History) Append(v model.SignalValue) {
	s := h.series[v.ID]
	if len(s) >= h.capacity {
		// shift in place so the backing array never grows past capacity
		copy(s, s[len(s)-h.capacity+1:])
		s = s[:h.capacity-1]
	}
	h.series[v.ID] = append(s, v)
}

// Get returns a copy of the series for id, most recent last.
func (h *History) Get(id string) []model.SignalValue {
	s := h.series[id]
	out := make([]model.SignalValue, len(s))
	copy(out, s)
	return out
}

func (h *History) Snapshot() map[string][]model.SignalValue {
	out := make(map[string][]model.SignalValue, len(h.series))
	for id := range h.series {
		out[id] = h.Get(id)
	}
	return out
}

func (h *History) Reset() {
	h.series = make(map[string][]model.SignalValue)
}
