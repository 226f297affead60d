package service

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Go-routine-4595/iba-monitor/model"
)

const (
	DefaultDeadband      = 5 * time.Second
	DefaultMaxAlarmCount = 1000
)

// AlarmLog turns alarming samples into discrete events. A new event for a
// signal is created only when more than the deadband has elapsed since that
// signal's previous event. This is time based, not edge triggered: a flat
// over-threshold signal re-fires once per deadband, and a signal that dips
// below threshold and returns within the deadband is not re-reported.
// It is not safe for concurrent use; Session serializes access.
type AlarmLog struct {
	deadband   time.Duration
	maxEntries int
	entries    []model.AlarmLog
	newID      func() string
}

func NewAlarmLog(deadband time.Duration, maxEntries int) *AlarmLog {
	if deadband < 0 {
		deadband = DefaultDeadband
	}
	if maxEntries <= 0 {
		maxEntries = DefaultMaxAlarmCount
	}
	return &AlarmLog{
		deadband:   deadband,
		maxEntries: maxEntries,
		newID:      func() string { return uuid.NewString() },
	}
}

// Consider returns the newly logged event for v, or nil when v is not
// alarming or falls inside the deadband of the signal's last event.
// Suppression is purely time based: a sustained condition re-fires once per
// deadband, and dropping below the threshold does not re-arm the signal.
func (l *AlarmLog) Consider(v model.SignalValue, cfg model.SignalConfig) *model.AlarmLog {
	if !v.IsAlarming {
		return nil
	}
	if last := l.lastFor(v.ID); last != nil {
		if time.Duration(v.Timestamp-last.Timestamp)*time.Millisecond <= l.deadband {
			return nil
		}
	}

	a := model.AlarmLog{
		ID:         l.newID(),
		SignalID:   v.ID,
		SignalName: cfg.Name,
		Timestamp:  v.Timestamp,
		Value:      v.Value,
		Message:    fmt.Sprintf("Value %.2f exceeded limit defined by: %s", v.Value, RuleText(cfg)),
		Severity:   model.Critical,
	}
	l.Append(a)
	return &a
}

// Append adds externally created events (fault injection, demo seed).
func (l *AlarmLog) Append(alarms ...model.AlarmLog) {
	l.entries = append(l.entries, alarms...)
	if over := len(l.entries) - l.maxEntries; over > 0 {
		l.entries = append(l.entries[:0], l.entries[over:]...)
	}
}

func (l *AlarmLog) lastFor(signalID string) *model.AlarmLog {
	for i := len(l.entries) - 1; i >= 0; i-- {
		if l.entries[i].SignalID == signalID {
			return &l.entries[i]
		}
	}
	return nil
}

func (l *AlarmLog) Clear() {
	l.entries = nil
}

func (l *AlarmLog) Len() int {
	return len(l.entries)
}

// List returns a copy of all events in creation order.
func (l *AlarmLog) List() []model.AlarmLog {
	out := make([]model.AlarmLog, len(l.entries))
	copy(out, l.entries)
	return out
}

// Recent returns up to n of the newest events, oldest first.
func (l *AlarmLog) Recent(n int) []model.AlarmLog {
	if n <= 0 || n > len(l.entries) {
		n = len(l.entries)
	}
	out := make([]model.AlarmLog, n)
	copy(out, l.entries[len(l.entries)-n:])
	return out
}
