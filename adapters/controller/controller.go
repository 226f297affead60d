package controller

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/Go-routine-4595/iba-monitor/service"
)

const DefaultPeriod = 200 * time.Millisecond

var ErrInvalidTransition = errors.New("invalid scheduler transition")

type ControllerConfig struct {
	Period      time.Duration `yaml:"Period"`
	AutoConnect bool          `yaml:"AutoConnect"`
	StreamQueue int           `yaml:"StreamQueue"`
}

type State int

const (
	Disconnected State = iota
	Running
	Paused
)

func (s State) String() string {
	switch s {
	case Running:
		return "running"
	case Paused:
		return "paused"
	default:
		return "disconnected"
	}
}

// Pipeline is what the scheduler drives on every tick.
type Pipeline interface {
	Tick(now time.Time) service.TickResult
	Connect(now time.Time)
	Disconnect()
}

// Controller fires the pipeline at a fixed period while connected and not
// paused. A single goroutine runs the ticks, so they never overlap; stopping
// waits for that goroutine, so no tick runs after Disconnect or Pause return.
type Controller struct {
	mu          sync.Mutex
	state       State
	period      time.Duration
	autoConnect bool
	pipe        Pipeline
	logger      zerolog.Logger
	now         func() time.Time
	parent      context.Context
	cancel      context.CancelFunc
	done        chan struct{}

	subMu       sync.Mutex
	subs        map[int]chan service.TickResult
	nextSub     int
	streamQueue int
}

func NewController(conf ControllerConfig, p Pipeline, logger zerolog.Logger) *Controller {
	if conf.Period <= 0 {
		conf.Period = DefaultPeriod
	}
	if conf.StreamQueue <= 0 {
		conf.StreamQueue = 16
	}
	return &Controller{
		period:      conf.Period,
		autoConnect: conf.AutoConnect,
		pipe:        p,
		logger:      logger.With().Str("component", "controller").Logger(),
		now:         time.Now,
		parent:      context.Background(),
		subs:        make(map[int]chan service.TickResult),
		streamQueue: conf.StreamQueue,
	}
}

// Start binds the controller to ctx: when ctx is cancelled the scheduler is
// torn down and wg released.
func (c *Controller) Start(ctx context.Context, wg *sync.WaitGroup) {
	c.mu.Lock()
	c.parent = ctx
	c.mu.Unlock()

	wg.Add(1)
	go func() {
		defer wg.Done()
		<-ctx.Done()
		c.Close()
		c.logger.Warn().Msg("context received signal, scheduler stopped")
	}()

	if c.autoConnect {
		if err := c.Connect(); err != nil {
			c.logger.Error().Err(err).Msg("auto connect")
		}
	}
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Controller) Period() time.Duration {
	return c.period
}

// Connect moves Disconnected to Running. The pipeline is reset first.
func (c *Controller) Connect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != Disconnected {
		return fmt.Errorf("%w: connect while %s", ErrInvalidTransition, c.state)
	}
	if c.parent.Err() != nil {
		return errors.Join(c.parent.Err(), errors.New("controller is shut down"))
	}
	c.pipe.Connect(c.now())
	c.startLocked()
	c.state = Running
	c.logger.Info().Dur("period", c.period).Msg("connected")
	return nil
}

// Disconnect stops the scheduler from either connected state. It is a no-op
// when already disconnected.
func (c *Controller) Disconnect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == Disconnected {
		return nil
	}
	c.stopLocked()
	c.pipe.Disconnect()
	c.state = Disconnected
	c.logger.Info().Msg("disconnected")
	return nil
}

func (c *Controller) Pause() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != Running {
		return fmt.Errorf("%w: pause while %s", ErrInvalidTransition, c.state)
	}
	c.stopLocked()
	c.state = Paused
	c.logger.Info().Msg("paused")
	return nil
}

func (c *Controller) Resume() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != Paused {
		return fmt.Errorf("%w: resume while %s", ErrInvalidTransition, c.state)
	}
	c.startLocked()
	c.state = Running
	c.logger.Info().Msg("resumed")
	return nil
}

// Close releases the timer on every exit path. Safe to call repeatedly.
func (c *Controller) Close() {
	if err := c.Disconnect(); err != nil {
		c.logger.Error().Err(err).Msg("close")
	}

	c.subMu.Lock()
	for id, ch := range c.subs {
		close(ch)
		delete(c.subs, id)
	}
	c.subMu.Unlock()
}

func (c *Controller) startLocked() {
	ctx, cancel := context.WithCancel(c.parent)
	c.cancel = cancel
	c.done = make(chan struct{})
	go c.run(ctx, c.done)
}

func (c *Controller) stopLocked() {
	if c.cancel == nil {
		return
	}
	c.cancel()
	<-c.done
	c.cancel = nil
	c.done = nil
}

// run must never take c.mu: stopLocked waits for it while holding the lock.
func (c *Controller) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	t := time.NewTicker(c.period)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if ctx.Err() != nil {
				return
			}
			c.publish(c.pipe.Tick(c.now()))
		}
	}
}

// Subscribe returns a stream of tick results. Slow subscribers miss ticks
// rather than delaying the scheduler.
func (c *Controller) Subscribe() (<-chan service.TickResult, func()) {
	c.subMu.Lock()
	defer c.subMu.Unlock()

	id := c.nextSub
	c.nextSub++
	ch := make(chan service.TickResult, c.streamQueue)
	c.subs[id] = ch

	return ch, func() {
		c.subMu.Lock()
		defer c.subMu.Unlock()
		if ch, ok := c.subs[id]; ok {
			close(ch)
			delete(c.subs, id)
		}
	}
}

func (c *Controller) publish(res service.TickResult) {
	c.subMu.Lock()
	defer c.subMu.Unlock()

	for _, ch := range c.subs {
		select {
		case ch <- res:
		default:
		}
	}
}
