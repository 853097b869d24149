// Package rover runs the rover's control tasks.
//
// Four goroutines share state through the records in Params:
//
//   - input reads the gamepad and writes DriveParams and MastParams
//   - drive initialises the actuators and applies drive commands
//   - mast steps the pan/tilt head
//   - aux is an extension point for future sensors
//
// Each task loops while its record is active. Clearing the records (or
// cancelling the context passed to Run) shuts the rover down; Run returns
// once all four tasks have returned.
package rover

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/teslashibe/go-rover/pkg/drive"
	"github.com/teslashibe/go-rover/pkg/gamepad"
	"github.com/teslashibe/go-rover/pkg/protocol"
	"github.com/teslashibe/go-rover/pkg/robot"
)

// Task names used in logs, status and fault telemetry.
const (
	TaskInput = "input"
	TaskDrive = "drive"
	TaskMast  = "mast"
	TaskAux   = "aux"
)

// Reporter receives telemetry messages. Report must not block.
type Reporter interface {
	Report(msg *protocol.Message)
}

// Option configures a Rover.
type Option func(*Rover)

// WithClock replaces the wall clock.
func WithClock(c Clock) Option {
	return func(r *Rover) {
		r.clock = c
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Rover) {
		r.logger = l
	}
}

// WithReporter adds a telemetry sink. May be given more than once.
func WithReporter(rep Reporter) Option {
	return func(r *Rover) {
		r.reporters = append(r.reporters, rep)
	}
}

// Rover owns the shared records and the controllers the tasks drive.
type Rover struct {
	cfg       Config
	opener    gamepad.Opener
	actuator  robot.Actuator
	clock     Clock
	logger    *slog.Logger
	reporters []Reporter

	params  *Params
	input   liveness
	ctrl    *drive.Controller
	mast    *drive.Mast
	effects *Effects

	// set once the actuators are initialised
	ready atomic.Bool

	running  atomic.Bool
	started  time.Time
	mastDone chan struct{}

	mu        sync.Mutex
	snapshot  gamepad.Snapshot
	lastSnap  gamepad.Snapshot
	fatal     error
	lastFault *protocol.FaultData

	stats inputStats
}

type inputStats struct {
	reads      atomic.Uint64
	protocol   atomic.Uint64
	timeouts   atomic.Uint64
	transport  atomic.Uint64
	reacquires atomic.Uint64
}

// New creates a rover. The pad is acquired through opener by the input
// task; actuator is initialised by the drive task.
func New(cfg Config, opener gamepad.Opener, actuator robot.Actuator, opts ...Option) (*Rover, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if opener == nil || actuator == nil {
		return nil, errors.New("rover: opener and actuator are required")
	}

	r := &Rover{
		cfg:      cfg,
		opener:   opener,
		actuator: actuator,
		clock:    SystemClock{},
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}

	r.params = NewParams(cfg.LEDsEnabled())
	r.input.active.Store(true)
	r.ctrl = drive.NewController(actuator, cfg.Steering, r.logger.With("component", "drive"))
	r.mast = drive.NewMast(actuator)
	r.effects = NewEffects(actuator, r.params.LEDs, r.clock, r.logger.With("component", "leds"))
	return r, nil
}

// Params returns the shared records.
func (r *Rover) Params() *Params {
	return r.params
}

// Run starts the four tasks and blocks until all of them have returned.
// Cancelling ctx deactivates every record. Run returns the error that
// ended the rover, or nil after a cancellation.
func (r *Rover) Run(ctx context.Context) error {
	if !r.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}

	r.started = r.clock.Now()
	r.mastDone = make(chan struct{})

	stop := context.AfterFunc(ctx, r.Shutdown)
	defer stop()

	tasks := []struct {
		name string
		run  func(context.Context)
	}{
		{TaskInput, r.runInput},
		{TaskDrive, r.runDrive},
		{TaskMast, r.runMast},
		{TaskAux, r.runAux},
	}

	var wg sync.WaitGroup
	for _, t := range tasks {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.logger.Debug("task started", "task", t.name)
			t.run(ctx)
			r.logger.Debug("task exited", "task", t.name)
			r.reportState()
		}()
	}
	wg.Wait()
	r.effects.Stop()

	r.mu.Lock()
	defer r.mu.Unlock()
	return r.fatal
}

// Shutdown asks every task to stop. Run returns once they have.
func (r *Rover) Shutdown() {
	r.logger.Info("shutdown requested")
	r.shutdown()
}

// shutdown clears every record the tasks loop on.
func (r *Rover) shutdown() {
	r.input.Deactivate()
	r.params.DeactivateAll()
}

// fail records the first fatal error and shuts the rover down.
func (r *Rover) fail(task string, err error) {
	r.mu.Lock()
	if r.fatal == nil {
		r.fatal = &TaskError{Task: task, Err: err}
	}
	r.mu.Unlock()
	r.shutdown()
}

type activeFlag interface {
	Active() bool
}

// alive is the loop condition of every task.
func alive(ctx context.Context, f activeFlag) bool {
	return f.Active() && ctx.Err() == nil
}

func (r *Rover) report(msg *protocol.Message, err error) {
	if err != nil {
		r.logger.Debug("telemetry encode failed", "error", err)
		return
	}
	for _, rep := range r.reporters {
		rep.Report(msg)
	}
}

func (r *Rover) reportFault(task, kind string, err error, retryable bool) {
	r.mu.Lock()
	r.lastFault = &protocol.FaultData{Task: task, Kind: kind, Error: err.Error(), Retryable: retryable}
	r.mu.Unlock()

	r.report(protocol.NewFaultMessage(task, kind, err, retryable))
}

func (r *Rover) reportState() {
	st := r.Status()
	r.report(protocol.NewStateMessage(st.Steering, st.Tasks, time.Duration(st.UptimeMs)*time.Millisecond))
}

// InputStats counts input task outcomes.
type InputStats struct {
	Reads      uint64 `json:"reads"`
	Protocol   uint64 `json:"protocol_errors"`
	Timeouts   uint64 `json:"timeouts"`
	Transport  uint64 `json:"transport_errors"`
	Reacquires uint64 `json:"reacquires"`
}

// Status is a point-in-time view of the rover.
type Status struct {
	Steering  string              `json:"steering"`
	Ready     bool                `json:"ready"`
	Tasks     map[string]bool     `json:"tasks"`
	LEDs      bool                `json:"leds"`
	Drive     drive.State         `json:"drive"`
	Mast      protocol.MastData   `json:"mast"`
	Input     InputStats          `json:"input"`
	LastFault *protocol.FaultData `json:"last_fault,omitempty"`
	UptimeMs  int64               `json:"uptime_ms"`
}

// Status returns the current task liveness, drive state and counters.
func (r *Rover) Status() Status {
	pan, tilt := r.mast.Position()

	r.mu.Lock()
	fault := r.lastFault
	r.mu.Unlock()

	var uptime time.Duration
	if r.running.Load() {
		uptime = r.clock.Now().Sub(r.started)
	}

	return Status{
		Steering: string(r.cfg.Steering),
		Ready:    r.ready.Load(),
		Tasks: map[string]bool{
			TaskInput: r.input.Active(),
			TaskDrive: r.params.Drive.Active(),
			TaskMast:  r.params.Mast.Active(),
			TaskAux:   r.params.Other.Active(),
		},
		LEDs:  r.params.LEDs.Active(),
		Drive: r.ctrl.State(),
		Mast:  protocol.MastData{Pan: pan, Tilt: tilt},
		Input: InputStats{
			Reads:      r.stats.reads.Load(),
			Protocol:   r.stats.protocol.Load(),
			Timeouts:   r.stats.timeouts.Load(),
			Transport:  r.stats.transport.Load(),
			Reacquires: r.stats.reacquires.Load(),
		},
		LastFault: fault,
		UptimeMs:  uptime.Milliseconds(),
	}
}

// Controls returns the latest decoded gamepad snapshot.
func (r *Rover) Controls() gamepad.Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshot
}
