// Package motor drives stepper motors of window coverings.
//
// A Motor tracks the absolute step position of its covering, translates
// percentage targets into step sequences and runs them on its own Scheduler,
// holding the shared power rail for the duration of every sequence.
package motor

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jkaflik/autohome/internal/gpio"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"go.uber.org/multierr"
)

const (
	DefaultMaxSteps        = 2200
	DefaultStepDelay       = 5 * time.Millisecond
	DefaultDirectionSettle = 5 * time.Millisecond

	// TurnSteps is one revolution, the progress reporting granularity.
	TurnSteps = 200
)

type Config struct {
	Name     string
	MaxSteps int

	// StepDelay is held on each side of a step pulse.
	StepDelay       time.Duration
	DirectionSettle time.Duration
	TurnSteps       int
}

func (c Config) withDefaults() Config {
	if c.StepDelay == 0 {
		c.StepDelay = DefaultStepDelay
	}
	if c.DirectionSettle == 0 {
		c.DirectionSettle = DefaultDirectionSettle
	}
	if c.TurnSteps <= 0 {
		c.TurnSteps = TurnSteps
	}

	return c
}

// PowerSource is the shared rail feeding the motor drivers.
type PowerSource interface {
	Use() error
	Release() error
}

type PositionStore interface {
	LoadPosition(name string) (position int, found bool, err error)
	StorePosition(name string, position int) error
}

type Option func(*Motor)

// WithSchedulerOptions passes opts to the motor's scheduler.
func WithSchedulerOptions(opts ...SchedulerOption) Option {
	return func(m *Motor) {
		m.schedulerOpts = append(m.schedulerOpts, opts...)
	}
}

type Motor struct {
	cfg Config

	dir   gpio.Pin
	step  gpio.Pin
	power PowerSource
	store PositionStore

	scheduler     *Scheduler
	schedulerOpts []SchedulerOption

	// advanceMu orders target updates with their submission.
	advanceMu sync.Mutex

	position atomic.Int64
	target   atomic.Int64
	status   atomic.Int32

	handlersMu sync.RWMutex
	handlers   []UpdateHandler

	faults chan error
}

// New sets up the motor outputs, restores the persisted position and starts
// the motion worker.
func New(cfg Config, dir, step gpio.Pin, power PowerSource, store PositionStore, opts ...Option) (*Motor, error) {
	if cfg.MaxSteps <= 0 {
		return nil, errors.Errorf("%s: max steps must be positive, got %d", cfg.Name, cfg.MaxSteps)
	}

	m := &Motor{
		cfg:    cfg.withDefaults(),
		dir:    dir,
		step:   step,
		power:  power,
		store:  store,
		faults: make(chan error, 1),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.status.Store(int32(StatusStopped))

	if err := m.step.Low(); err != nil {
		return nil, errors.Wrapf(err, "%s: step pin setup failed", cfg.Name)
	}

	if err := m.Load(); err != nil {
		return nil, err
	}

	m.scheduler = NewScheduler(cfg.Name, append(m.schedulerOpts, WithErrorHandler(m.fault))...)

	logrus.Infof("%s: initialized at position %d/%d", cfg.Name, m.Position(), cfg.MaxSteps)

	return m, nil
}

func (m *Motor) Name() string {
	return m.cfg.Name
}

func (m *Motor) MaxSteps() int {
	return m.cfg.MaxSteps
}

// OnUpdate registers h to be called on progress and completion of every motion.
func (m *Motor) OnUpdate(h UpdateHandler) {
	m.handlersMu.Lock()
	defer m.handlersMu.Unlock()

	m.handlers = append(m.handlers, h)
}

// Faults delivers hardware errors that aborted a motion.
func (m *Motor) Faults() <-chan error {
	return m.faults
}

// Advance moves the covering to percentage. It returns once the motion is queued.
//
// A request for the last requested target is ignored, even when the motor has not
// reached it yet.
func (m *Motor) Advance(percentage int) error {
	if percentage < 0 || percentage > 100 {
		return errors.Errorf("%s: %d is out of range 0-100 target", m.cfg.Name, percentage)
	}
	targetSteps := PositionForPercentage(percentage, m.cfg.MaxSteps)

	m.advanceMu.Lock()
	defer m.advanceMu.Unlock()

	previous := int(m.target.Load())
	if targetSteps == previous {
		logrus.Debugf("%s: already heading to %d%%", m.cfg.Name, percentage)
		return nil
	}

	if err := m.power.Use(); err != nil {
		return errors.Wrapf(err, "%s: advance", m.cfg.Name)
	}

	steps, direction := targetSteps-previous, Forward
	if steps < 0 {
		steps, direction = -steps, Backward
	}

	previousStatus := m.status.Swap(int32(direction.status()))
	m.target.Store(int64(targetSteps))

	err := m.scheduler.Submit(func(ctx context.Context) error {
		return m.runSteps(ctx, steps, direction)
	})
	if err != nil {
		m.target.Store(int64(previous))
		m.status.Store(previousStatus)
		if rerr := m.power.Release(); rerr != nil {
			logrus.Errorf("%s: %s", m.cfg.Name, rerr)
		}

		return errors.Wrapf(err, "%s: advance", m.cfg.Name)
	}

	logrus.Infof("%s: target set to %d%% (%d steps %s)", m.cfg.Name, percentage, steps, direction)

	return nil
}

func (m *Motor) runSteps(ctx context.Context, steps int, direction Direction) error {
	defer func() {
		m.status.Store(int32(StatusStopped))
		if err := m.power.Release(); err != nil {
			logrus.Errorf("%s: %s", m.cfg.Name, err)
		}
		m.notify()
	}()

	if ctx.Err() != nil {
		logrus.Warnf("%s: skipping %d steps %s, shutting down", m.cfg.Name, steps, direction)
		return nil
	}

	logrus.Infof("%s: advance %d steps %s", m.cfg.Name, steps, direction)
	m.status.Store(int32(direction.status()))
	m.notify()

	if err := gpio.Set(m.dir, direction == Forward); err != nil {
		return errors.Wrapf(err, "%s: set direction failed", m.cfg.Name)
	}
	time.Sleep(m.cfg.DirectionSettle)

	for i := 0; i < steps; i++ {
		if ctx.Err() != nil {
			logrus.Warnf("%s: motion interrupted at position %d", m.cfg.Name, m.Position())
			return nil
		}

		next := m.Position() + direction.delta()
		if next < 0 || next > m.cfg.MaxSteps {
			logrus.Warnf("%s: refusing to step to %d, outside 0-%d", m.cfg.Name, next, m.cfg.MaxSteps)
			return nil
		}

		if err := m.pulse(); err != nil {
			return errors.Wrapf(err, "%s: step failed at position %d", m.cfg.Name, m.Position())
		}
		m.position.Store(int64(next))

		if (i+1)%m.cfg.TurnSteps == 0 {
			logrus.Debugf("%s: rotated %d turns", m.cfg.Name, (i+1)/m.cfg.TurnSteps)
			m.notify()
		}
	}

	logrus.Infof("%s: reached position %d", m.cfg.Name, m.Position())

	return nil
}

func (m *Motor) pulse() error {
	if err := m.step.High(); err != nil {
		return err
	}
	time.Sleep(m.cfg.StepDelay)

	if err := m.step.Low(); err != nil {
		return err
	}
	time.Sleep(m.cfg.StepDelay)

	return nil
}

func (m *Motor) notify() {
	state := m.State()

	m.handlersMu.RLock()
	handlers := m.handlers
	m.handlersMu.RUnlock()

	var err error
	for _, h := range handlers {
		err = multierr.Append(err, callHandler(h, state))
	}

	if err != nil {
		logrus.Errorf("%s: notify failed: %s", m.cfg.Name, err)
	}
}

func callHandler(h UpdateHandler, state State) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Errorf("update handler panic: %v", r)
		}
	}()

	return h(state)
}

func (m *Motor) fault(err error) {
	select {
	case m.faults <- err:
	default:
		logrus.Debugf("%s: fault already pending, dropping: %s", m.cfg.Name, err)
	}
}

func (m *Motor) Position() int {
	return int(m.position.Load())
}

func (m *Motor) TargetSteps() int {
	return int(m.target.Load())
}

func (m *Motor) CurrentPercentage() int {
	return PercentageForPosition(m.Position(), m.cfg.MaxSteps)
}

func (m *Motor) TargetPercentage() int {
	return PercentageForPosition(m.TargetSteps(), m.cfg.MaxSteps)
}

func (m *Motor) Status() Status {
	return Status(m.status.Load())
}

func (m *Motor) State() State {
	position, target := m.Position(), m.TargetSteps()

	return State{
		Name:        m.cfg.Name,
		Status:      m.Status(),
		Current:     PercentageForPosition(position, m.cfg.MaxSteps),
		Target:      PercentageForPosition(target, m.cfg.MaxSteps),
		Position:    position,
		TargetSteps: target,
	}
}

// Load restores the persisted position. The target follows the position.
func (m *Motor) Load() error {
	position, found, err := m.store.LoadPosition(m.cfg.Name)
	if err != nil {
		return errors.Wrapf(err, "%s: load", m.cfg.Name)
	}
	if !found {
		logrus.Infof("%s: no stored position, assuming 0", m.cfg.Name)
	}

	if position < 0 || position > m.cfg.MaxSteps {
		clamped := clamp(position, 0, m.cfg.MaxSteps)
		logrus.Warnf("%s: stored position %d outside 0-%d, using %d", m.cfg.Name, position, m.cfg.MaxSteps, clamped)
		position = clamped
	}

	m.position.Store(int64(position))
	m.target.Store(int64(position))

	return nil
}

// Store persists the current position.
func (m *Motor) Store() error {
	position := m.Position()
	if err := m.store.StorePosition(m.cfg.Name, position); err != nil {
		return err
	}

	logrus.Infof("%s: stored position %d", m.cfg.Name, position)
	return nil
}

// Close stops accepting motion and waits for queued motion to finish.
// Once ctx is done the running motion stops at the next step.
func (m *Motor) Close(ctx context.Context) error {
	return errors.Wrapf(m.scheduler.Close(ctx), "%s: close", m.cfg.Name)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}

	return v
}
