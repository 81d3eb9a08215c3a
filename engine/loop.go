package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/brensch/gridsnake/game"
)

// Ticker is a cancellable repeating task. Reset replaces the period of a
// running or stopped ticker; ticks of the old period are never delivered
// after Reset returns.
type Ticker interface {
	C() <-chan time.Time
	Reset(d time.Duration)
	Stop()
}

// TickerFactory creates a started ticker.
type TickerFactory func(d time.Duration) Ticker

type timeTicker struct {
	t *time.Ticker
}

// NewTimeTicker wraps time.Ticker.
func NewTimeTicker(d time.Duration) Ticker {
	return &timeTicker{t: time.NewTicker(d)}
}

func (t *timeTicker) C() <-chan time.Time   { return t.t.C }
func (t *timeTicker) Reset(d time.Duration) { t.t.Reset(d) }
func (t *timeTicker) Stop()                 { t.t.Stop() }

// CommandKind enumerates the discrete inputs a Loop accepts.
type CommandKind int

const (
	CmdStart CommandKind = iota
	CmdTogglePause
	CmdRestart
	CmdTurn
)

func (k CommandKind) String() string {
	switch k {
	case CmdStart:
		return "start"
	case CmdTogglePause:
		return "pause"
	case CmdRestart:
		return "restart"
	case CmdTurn:
		return "turn"
	}
	return "unknown"
}

type Command struct {
	Kind CommandKind
	Dir  game.Direction
}

func Start() Command                { return Command{Kind: CmdStart} }
func TogglePause() Command          { return Command{Kind: CmdTogglePause} }
func Restart() Command              { return Command{Kind: CmdRestart} }
func Turn(d game.Direction) Command { return Command{Kind: CmdTurn, Dir: d} }

const defaultCommandBuffer = 64

// Loop drives an Engine from a single goroutine. Ticks, commands and ticker
// re-arming are all serialized through Run, so two ticks can never overlap.
type Loop struct {
	engine     *Engine
	onSnapshot func(Snapshot)
	newTicker  TickerFactory
	nextConfig func() Config
	logger     *slog.Logger

	cmds chan Command
	done chan struct{}

	ticker Ticker
	armed  bool
	period time.Duration
	gen    int
}

type LoopOption func(*Loop)

// WithTickerFactory replaces the wall-clock ticker, mainly for tests.
func WithTickerFactory(f TickerFactory) LoopOption {
	return func(l *Loop) { l.newTicker = f }
}

func WithLoopLogger(logger *slog.Logger) LoopOption {
	return func(l *Loop) { l.logger = logger }
}

// WithNextConfig is consulted every time a new game begins, so settings
// saved while a game runs apply from the next Start or Restart.
func WithNextConfig(f func() Config) LoopOption {
	return func(l *Loop) { l.nextConfig = f }
}

// WithCommandBuffer sets how many commands may queue before Send drops.
func WithCommandBuffer(n int) LoopOption {
	return func(l *Loop) {
		if n > 0 {
			l.cmds = make(chan Command, n)
		}
	}
}

// NewLoop returns a loop that publishes every snapshot to onSnapshot.
// onSnapshot runs on the loop goroutine and must not call back into Send
// in a way that blocks.
func NewLoop(e *Engine, onSnapshot func(Snapshot), opts ...LoopOption) *Loop {
	l := &Loop{
		engine:     e,
		onSnapshot: onSnapshot,
		newTicker:  NewTimeTicker,
		logger:     slog.Default(),
		cmds:       make(chan Command, defaultCommandBuffer),
		done:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.onSnapshot == nil {
		l.onSnapshot = func(Snapshot) {}
	}
	return l
}

// Engine returns the driven engine.
func (l *Loop) Engine() *Engine { return l.engine }

// Send queues a command without blocking. It returns false when the queue
// is full or the loop has exited.
func (l *Loop) Send(cmd Command) bool {
	select {
	case <-l.done:
		return false
	default:
	}
	select {
	case l.cmds <- cmd:
		return true
	default:
		l.logger.Warn("command dropped", "kind", cmd.Kind.String())
		return false
	}
}

// Done is closed once Run returns.
func (l *Loop) Done() <-chan struct{} { return l.done }

// DropOldest returns an onSnapshot callback that forwards into ch. When ch
// is full the oldest queued snapshot is discarded so the newest one always
// gets through.
func DropOldest(ch chan Snapshot) func(Snapshot) {
	return func(snap Snapshot) {
		select {
		case ch <- snap:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- snap:
		default:
		}
	}
}

// Run processes commands and ticks until ctx is cancelled.
func (l *Loop) Run(ctx context.Context) error {
	defer close(l.done)
	defer l.disarm()

	for {
		var tick <-chan time.Time
		if l.armed {
			tick = l.ticker.C()
		}

		select {
		case <-ctx.Done():
			return ctx.Err()

		case cmd := <-l.cmds:
			l.handle(cmd)

		case <-tick:
			// Commands queued before the tick are applied first. If one of
			// them re-armed or stopped the ticker, this tick is stale.
			if l.drain() {
				continue
			}
			res := l.engine.Tick()
			if !res.Advanced {
				continue
			}
			switch {
			case res.Snapshot.Over():
				l.disarm()
			case res.Rearm:
				l.arm(l.engine.Interval())
			}
			l.onSnapshot(res.Snapshot)
		}
	}
}

func (l *Loop) handle(cmd Command) {
	switch cmd.Kind {
	case CmdStart:
		switch l.engine.Status() {
		case Running:
			return
		case Paused:
			l.engine.Resume()
			l.arm(l.engine.Interval())
			l.onSnapshot(l.engine.Snapshot())
			return
		}
		l.begin()

	case CmdRestart:
		l.begin()

	case CmdTogglePause:
		switch l.engine.TogglePause() {
		case Running:
			l.arm(l.engine.Interval())
		case Paused:
			l.disarm()
		default:
			return
		}
		l.onSnapshot(l.engine.Snapshot())

	case CmdTurn:
		if !l.engine.Turn(cmd.Dir) {
			l.logger.Debug("turn rejected", "dir", cmd.Dir.String())
		}
	}
}

// drain handles every queued command and reports whether the ticker was
// touched while doing so.
func (l *Loop) drain() bool {
	gen := l.gen
	for {
		select {
		case cmd := <-l.cmds:
			l.handle(cmd)
		default:
			return l.gen != gen
		}
	}
}

func (l *Loop) begin() {
	if l.nextConfig != nil {
		l.engine.Configure(l.nextConfig())
	}
	snap := l.engine.Start()
	l.arm(l.engine.Interval())
	l.onSnapshot(snap)
}

// arm cancels any pending schedule and starts ticking at d.
func (l *Loop) arm(d time.Duration) {
	if l.ticker == nil {
		l.ticker = l.newTicker(d)
	} else {
		l.ticker.Stop()
		l.ticker.Reset(d)
	}
	if l.period != d {
		l.logger.Debug("ticker armed", "interval", d)
	}
	l.armed = true
	l.period = d
	l.gen++
}

func (l *Loop) disarm() {
	if l.ticker != nil {
		l.ticker.Stop()
	}
	l.armed = false
	l.gen++
}
