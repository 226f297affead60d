package notifier

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/Go-routine-4595/iba-monitor/model"
)

const defaultQueue = 256

// Gateway is a named outbound alarm channel.
type Gateway struct {
	Name string
	model.IGateway
}

// Notifier fans alarms out to every gateway from a background worker. Notify
// never blocks the pipeline: when the queue is full the alarm notification is
// dropped and counted, the alarm itself stays in the log.
type Notifier struct {
	gateways  []Gateway
	queue     chan model.AlarmLog
	logger    zerolog.Logger
	onDrop    func()
	onFailure func(gateway string)
}

type Option func(*Notifier)

func WithQueueSize(n int) Option {
	return func(no *Notifier) {
		if n > 0 {
			no.queue = make(chan model.AlarmLog, n)
		}
	}
}

func WithDropHook(fn func()) Option {
	return func(no *Notifier) {
		if fn != nil {
			no.onDrop = fn
		}
	}
}

func WithFailureHook(fn func(gateway string)) Option {
	return func(no *Notifier) {
		if fn != nil {
			no.onFailure = fn
		}
	}
}

func NewNotifier(logger zerolog.Logger, gateways []Gateway, opts ...Option) *Notifier {
	n := &Notifier{
		gateways:  gateways,
		queue:     make(chan model.AlarmLog, defaultQueue),
		logger:    logger.With().Str("component", "notifier").Logger(),
		onDrop:    func() {},
		onFailure: func(string) {},
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

func (n *Notifier) Notify(a model.AlarmLog) {
	select {
	case n.queue <- a:
	default:
		n.onDrop()
		n.logger.Warn().Str("alarm", a.ID).Str("signal", a.SignalID).Msg("notification queue full, dropped")
	}
}

// Start runs the delivery worker until ctx is cancelled; queued alarms are
// flushed before it returns.
func (n *Notifier) Start(ctx context.Context, wg *sync.WaitGroup) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case a := <-n.queue:
				n.deliver(a)
			case <-ctx.Done():
				n.drain()
				n.logger.Info().Msg("notifier stopped")
				return
			}
		}
	}()
}

func (n *Notifier) drain() {
	for {
		select {
		case a := <-n.queue:
			n.deliver(a)
		default:
			return
		}
	}
}

func (n *Notifier) deliver(a model.AlarmLog) {
	for _, g := range n.gateways {
		if err := n.send(g, a); err != nil {
			n.onFailure(g.Name)
			n.logger.Error().Err(err).Str("gateway", g.Name).Str("alarm", a.ID).Msg("alarm delivery failed")
		}
	}
}

// send isolates one gateway: a panic there must not stop delivery to the others.
func (n *Notifier) send(g Gateway, a model.AlarmLog) (err error) {
	defer func() {
		if r := recover(); r != nil {
			n.logger.Error().Interface("panic", r).Str("gateway", g.Name).Msg("gateway panicked")
			err = nil
			n.onFailure(g.Name)
		}
	}()
	return g.SendAlarm(a)
}
