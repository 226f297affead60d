package notifier

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Go-routine-4595/iba-monitor/model"
)

type recorder struct {
	mu   sync.Mutex
	got  []string
	fail bool
	boom bool
}

func (r *recorder) SendAlarm(a model.AlarmLog) error {
	if r.boom {
		panic("speaker unplugged")
	}
	if r.fail {
		return errors.New("no audio device")
	}
	r.mu.Lock()
	r.got = append(r.got, a.ID)
	r.mu.Unlock()
	return nil
}

func (r *recorder) ids() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.got...)
}

func TestNotifierFansOut(t *testing.T) {
	ok := &recorder{}
	failing := &recorder{fail: true}
	panicking := &recorder{boom: true}

	var mu sync.Mutex
	failures := map[string]int{}
	n := NewNotifier(zerolog.Nop(), []Gateway{
		{Name: "sound", IGateway: failing},
		{Name: "broken", IGateway: panicking},
		{Name: "mqtt", IGateway: ok},
	}, WithFailureHook(func(g string) {
		mu.Lock()
		failures[g]++
		mu.Unlock()
	}))

	ctx, cancel := context.WithCancel(context.Background())
	wg := &sync.WaitGroup{}
	n.Start(ctx, wg)

	n.Notify(model.AlarmLog{ID: "a1"})
	n.Notify(model.AlarmLog{ID: "a2"})

	require.Eventually(t, func() bool { return len(ok.ids()) == 2 }, time.Second, time.Millisecond)
	assert.Equal(t, []string{"a1", "a2"}, ok.ids())

	cancel()
	wg.Wait()
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 2, failures["sound"])
	assert.Equal(t, 2, failures["broken"])
}

func TestNotifierDropsWhenFull(t *testing.T) {
	dropped := 0
	n := NewNotifier(zerolog.Nop(), nil, WithQueueSize(1), WithDropHook(func() { dropped++ }))

	n.Notify(model.AlarmLog{ID: "a1"})
	n.Notify(model.AlarmLog{ID: "a2"})
	assert.Equal(t, 1, dropped)
}

func TestNotifierFlushesOnShutdown(t *testing.T) {
	ok := &recorder{}
	n := NewNotifier(zerolog.Nop(), []Gateway{{Name: "display", IGateway: ok}})
	for i := 0; i < 5; i++ {
		n.Notify(model.AlarmLog{ID: string(rune('a' + i))})
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	wg := &sync.WaitGroup{}
	n.Start(ctx, wg)
	wg.Wait()
	assert.Len(t, ok.ids(), 5)
}
