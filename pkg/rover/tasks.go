package rover

import (
	"context"
	"errors"
	"fmt"
	"runtime"

	"github.com/teslashibe/go-rover/pkg/drive"
	"github.com/teslashibe/go-rover/pkg/gamepad"
	"github.com/teslashibe/go-rover/pkg/protocol"
	"github.com/teslashibe/go-rover/pkg/robot"
)

// runInput acquires the pad and feeds the command records until the input
// record is cleared. A failed transport is closed and re-acquired; an
// acquisition failure that cannot be retried shuts the rover down.
func (r *Rover) runInput(ctx context.Context) {
	log := r.logger.With("task", TaskInput)

	for alive(ctx, &r.input) {
		t, err := r.opener.Open(ctx)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			var ie *gamepad.InitError
			retryable := errors.As(err, &ie) && ie.IsRetryable()
			r.reportFault(TaskInput, protocol.FaultInit, err, retryable)
			if !retryable {
				log.Error("gamepad unavailable, shutting down", "error", err)
				r.fail(TaskInput, fmt.Errorf("%w: %w", ErrInputLost, err))
				break
			}
			log.Warn("gamepad not ready, retrying", "error", err, "delay", r.cfg.ReacquireDelay)
			r.neutral()
			r.clock.Sleep(ctx, r.cfg.ReacquireDelay)
			continue
		}

		log.Info("gamepad connected")
		pad := gamepad.NewPad(t, gamepad.NewDecoder(gamepad.Mode0, gamepad.WithClock(r.clock.Now)), log)
		r.readPad(ctx, pad)
		// without a pad there is nobody holding the sticks
		r.neutral()
		if err := pad.Close(); err != nil {
			log.Debug("close gamepad", "error", err)
		}

		if !alive(ctx, &r.input) {
			break
		}
		r.stats.reacquires.Add(1)
		log.Warn("gamepad lost, re-acquiring", "delay", r.cfg.ReacquireDelay)
		r.clock.Sleep(ctx, r.cfg.ReacquireDelay)
	}
}

// readPad polls an acquired pad. It returns when the input record is
// cleared or the transport fails.
func (r *Rover) readPad(ctx context.Context, pad *gamepad.Pad) {
	log := r.logger.With("task", TaskInput)

	for alive(ctx, &r.input) {
		snap, err := pad.Poll(ctx)
		if err == nil {
			r.stats.reads.Add(1)
			r.params.Drive.Set(DriveInputFrom(snap))
			r.params.Mast.Set(MastCommandFrom(snap))
			r.publishSnapshot(snap)
			r.clock.Sleep(ctx, r.cfg.PollInterval)
			continue
		}
		if ctx.Err() != nil {
			return
		}

		switch {
		case errors.Is(err, gamepad.ErrTimeout):
			r.stats.timeouts.Add(1)
			log.Debug("no report", "error", err)
		case gamepad.IsProtocolError(err):
			r.stats.protocol.Add(1)
			log.Warn("bad report", "error", err)
			r.reportFault(TaskInput, protocol.FaultProtocol, err, true)
			r.effects.Start(ctx, PatternFault)
		default:
			r.stats.transport.Add(1)
			if gamepad.IsRecoverable(err) {
				log.Warn("gamepad read failed", "error", err)
			} else {
				// ErrClosed or a transport outside the gamepad contract
				log.Error("unexpected gamepad error", "error", err)
			}
			r.reportFault(TaskInput, protocol.FaultTransport, err, true)
			r.effects.Start(ctx, PatternFault)
			return
		}
		r.clock.Sleep(ctx, r.cfg.ErrorBackoff)
	}
}

// neutral releases every control, as if the pad were centred.
func (r *Rover) neutral() {
	r.params.Drive.Set(DriveInput{})
	r.params.Mast.Set(drive.MastCommand{})
}

func (r *Rover) publishSnapshot(snap gamepad.Snapshot) {
	r.mu.Lock()
	r.snapshot = snap
	changed := !sameValues(snap, r.lastSnap)
	if changed {
		r.lastSnap = snap
	}
	r.mu.Unlock()

	if changed && len(r.reporters) > 0 {
		r.report(protocol.NewSnapshotMessage(r.stats.reads.Load(), snap))
	}
}

// sameValues ignores press durations, which change on every read.
func sameValues(a, b gamepad.Snapshot) bool {
	for i := range a.Values {
		if a.Values[i].Value != b.Values[i].Value {
			return false
		}
	}
	return true
}

// runDrive brings the actuators up, applies drive commands until the drive
// record is cleared, then releases the hardware.
func (r *Rover) runDrive(ctx context.Context) {
	log := r.logger.With("task", TaskDrive)
	p := r.params.Drive

	if err := r.actuator.Init(ctx); err != nil {
		log.Error("actuator init failed, shutting down", "error", err)
		var ie *robot.InitError
		r.reportFault(TaskDrive, protocol.FaultInit, err, errors.As(err, &ie) && ie.IsRetryable())
		r.fail(TaskDrive, err)
		r.params.LEDs.Deactivate()
		if cerr := r.actuator.Cleanup(); cerr != nil {
			log.Debug("cleanup after failed init", "error", cerr)
		}
		return
	}
	r.ready.Store(true)

	r.effects.Start(ctx, PatternStartup)
	r.clock.Sleep(ctx, r.cfg.StartupDelay)
	log.Info("rover ready", "steering", r.cfg.Steering)
	r.reportState()

	for alive(ctx, p) {
		in := p.Get()
		switch {
		case in.Stop:
			if err := r.ctrl.Stop(); err != nil {
				r.actuatorFault(err)
			}
			log.Info("stop")
			r.reportAction(protocol.ActionStop)
			r.effects.Start(ctx, PatternStop)
			r.clock.Sleep(ctx, r.cfg.StopHold)

		case in.Brake:
			if err := r.ctrl.Brake(); err != nil {
				r.actuatorFault(err)
			}
			log.Info("brake")
			r.reportAction(protocol.ActionBrake)
			r.effects.Start(ctx, PatternBrake)
			r.clock.Sleep(ctx, r.cfg.BrakeHold)

		default:
			before := r.ctrl.State().Applied
			if _, err := r.ctrl.Drive(in.Yaw, in.Throttle, in.LeftRight, in.ForwardBack); err != nil {
				r.actuatorFault(err)
			} else if r.ctrl.State().Applied != before {
				r.reportAction(protocol.ActionDrive)
			}
			r.clock.Sleep(ctx, r.cfg.DriveInterval)
		}
		runtime.Gosched()
	}

	// the mast recentres over the same bus, so it goes first
	r.params.Mast.Deactivate()
	if r.mastDone != nil {
		<-r.mastDone
	}

	r.effects.Play(ctx, PatternShutdown)
	r.effects.Stop()
	r.ready.Store(false)
	if err := r.actuator.Cleanup(); err != nil {
		log.Warn("actuator cleanup", "error", err)
	}
	r.params.LEDs.Deactivate()
	log.Info("drive stopped")
}

func (r *Rover) actuatorFault(err error) {
	r.logger.Warn("actuator command failed", "task", TaskDrive, "error", err)
	r.reportFault(TaskDrive, protocol.FaultActuator, err, true)
}

func (r *Rover) reportAction(action string) {
	if len(r.reporters) == 0 {
		return
	}
	st := r.ctrl.State()
	r.report(protocol.NewDriveMessage(protocol.DriveData{
		Action:     action,
		Mode:       string(st.Mode),
		Direction:  st.Last.Direction,
		Speed:      st.Last.Speed,
		LeftAngle:  st.Wheels.LeftAngle,
		RightAngle: st.Wheels.RightAngle,
		LeftSpeed:  st.Wheels.LeftSpeed,
		RightSpeed: st.Wheels.RightSpeed,
	}))
}

// runMast steps the mast from the D-pad until the mast record is cleared,
// then recentres it.
func (r *Rover) runMast(ctx context.Context) {
	if r.mastDone != nil {
		defer close(r.mastDone)
	}
	log := r.logger.With("task", TaskMast)
	p := r.params.Mast

	for alive(ctx, p) {
		if r.ready.Load() {
			prevPan, prevTilt := r.mast.Position()
			if err := r.mast.Move(p.Get()); err != nil {
				log.Warn("mast move failed", "error", err)
				r.reportFault(TaskMast, protocol.FaultActuator, err, true)
			}
			if pan, tilt := r.mast.Position(); pan != prevPan || tilt != prevTilt {
				r.report(protocol.NewMastMessage(pan, tilt))
			}
		}
		r.clock.Sleep(ctx, r.cfg.MastInterval)
	}

	if !r.ready.Load() {
		return
	}
	if err := r.mast.Reset(); err != nil {
		log.Warn("mast reset failed", "error", err)
	}
}

// runAux loops on the auxiliary record. Sensors polled alongside the
// drive (sonar, line followers) hook in here.
func (r *Rover) runAux(ctx context.Context) {
	p := r.params.Other
	for alive(ctx, p) {
		r.clock.Sleep(ctx, r.cfg.AuxInterval)
	}
}
