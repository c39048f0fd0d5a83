package main

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"swerve-core/config"
	"swerve-core/drive"
	"swerve-core/hardware"
	"swerve-core/kinematics"
	"swerve-core/sim"
	"swerve-core/telemetry"
	"swerve-core/utils"
	"swerve-core/vision"
)

type RunnerConfig struct {
	Config   config.Config
	Scenario Scenario
	// Sim runs against simulated hardware instead of the CAN bus.
	Sim bool
}

// Runner owns one control session: backends, drive, vision and the scenario clock.
type Runner struct {
	cfg   config.Config
	scen  Scenario
	log   *utils.Logger
	runID uuid.UUID

	sink     telemetry.Sink
	drive    *drive.SwerveDrive
	vision   *vision.Controller
	follower drive.FollowerBinding

	// backends; exactly one of platform or bus is set
	platform *sim.Platform
	bus      *hardware.Bus
	sensors  []*vision.UDPSensor

	closers []io.Closer

	mu             sync.Mutex
	followerSpeeds kinematics.ChassisVelocity
	segment        int
	cycles         uint64
}

func NewRunner(ctx context.Context, rc RunnerConfig, log *utils.Logger) (*Runner, error) {
	cfg := rc.Config
	runID := uuid.New()
	r := &Runner{
		cfg:     cfg,
		scen:    rc.Scenario,
		log:     log.With("run", runID.String()),
		runID:   runID,
		segment: -1,
	}
	ready := false
	defer func() {
		if !ready {
			_ = r.Close()
		}
	}()

	kin, err := kinematics.NewRectangular(cfg.Platform.WheelbaseM, cfg.Platform.TrackwidthM)
	if err != nil {
		return nil, errors.Wrap(err, "kinematics")
	}

	if err := r.setupTelemetry(); err != nil {
		return nil, err
	}

	var (
		modules       [kinematics.NumModules]drive.Module
		gyro          drive.Gyro
		intake, shoot vision.TargetSensor
	)
	if rc.Sim {
		r.platform = sim.NewPlatform(kin, cfg.Platform.MaxSpeedMPS)
		for i, m := range r.platform.Modules {
			modules[i] = m
		}
		gyro = r.platform.Gyro
		t := r.scen.Targets
		intake = sim.NewTargetSensor(r.platform, kinematics.Vec(t.Intake[0], t.Intake[1]))
		shoot = sim.NewTargetSensor(r.platform, kinematics.Vec(t.Shoot[0], t.Shoot[1]))
	} else {
		if modules, gyro, err = r.setupCAN(ctx); err != nil {
			return nil, err
		}
		if intake, shoot, err = r.setupVisionSensors(); err != nil {
			return nil, err
		}
	}

	r.drive, err = drive.New(modules, gyro, kin, cfg.Platform.Drive(), r.sink, r.log)
	if err != nil {
		return nil, errors.Wrap(err, "swerve drive")
	}

	r.vision, err = vision.NewController(intake, shoot, cfg.Vision, r.sink, r.log)
	if err != nil {
		return nil, errors.Wrap(err, "vision controller")
	}

	followerCfg := cfg.FollowerConfig()
	r.follower, err = drive.NewFollowerBinding(r.drive, drive.FixedAlliance(drive.ParseAlliance(cfg.Alliance)), drive.FollowerOptions{
		Config:  &followerCfg,
		Blended: true,
		Output:  r.setFollowerSpeeds,
	})
	if err != nil {
		return nil, err
	}

	r.drive.ResetModulesToAbsolute()
	ready = true

	r.log.Info("runner ready: sim=%v scenario=%q duration=%.2fs cycle=%dms alliance=%s mirror=%v",
		rc.Sim, r.scen.Meta.Name, r.scen.Timing.DurationS, cfg.CycleMS,
		drive.ParseAlliance(cfg.Alliance), r.follower.ShouldMirror())
	return r, nil
}

func (r *Runner) setupTelemetry() error {
	sinks := telemetry.Multi{telemetry.LogSink{Log: r.log}}
	if m := r.cfg.Telemetry.MQTT; m != nil {
		mc := *m
		if mc.ClientID == "" {
			mc.ClientID = "swerve-" + r.runID.String()[:8]
		}
		ms, err := telemetry.NewMQTTSink(mc, r.log)
		if err != nil {
			return errors.Wrap(err, "telemetry")
		}
		r.closers = append(r.closers, ms)
		sinks = append(sinks, ms)
	}
	r.sink = telemetry.Safe(sinks, r.log)
	return nil
}

func (r *Runner) setupCAN(ctx context.Context) ([kinematics.NumModules]drive.Module, drive.Gyro, error) {
	var modules [kinematics.NumModules]drive.Module

	cmap, err := utils.LoadCANMap(r.cfg.CAN.MapPath)
	if err != nil {
		return modules, nil, errors.Wrap(err, "load can map")
	}
	writer, err := utils.NewSocketCANWriter(ctx, r.cfg.CAN.Interface)
	if err != nil {
		return modules, nil, err
	}
	reader, err := utils.NewSocketCANReader(ctx, r.cfg.CAN.Interface)
	if err != nil {
		_ = writer.Close()
		return modules, nil, err
	}
	r.bus = hardware.NewBus(cmap, writer, reader, r.log)
	r.closers = append(r.closers, r.bus)

	for i := range modules {
		m, err := hardware.NewCANModule(r.bus, i, r.log)
		if err != nil {
			return modules, nil, err
		}
		modules[i] = m
	}
	gyro, err := hardware.NewCANGyro(r.bus, r.log)
	if err != nil {
		return modules, nil, err
	}
	return modules, gyro, nil
}

func (r *Runner) setupVisionSensors() (vision.TargetSensor, vision.TargetSensor, error) {
	intake, err := vision.ListenUDP(r.cfg.Vision.IntakeSensor, r.log)
	if err != nil {
		return nil, nil, errors.Wrap(err, "intake sensor")
	}
	r.closers = append(r.closers, intake)
	shoot, err := vision.ListenUDP(r.cfg.Vision.ShootSensor, r.log)
	if err != nil {
		return nil, nil, errors.Wrap(err, "shoot sensor")
	}
	r.closers = append(r.closers, shoot)
	r.sensors = []*vision.UDPSensor{intake, shoot}
	return intake, shoot, nil
}

func (r *Runner) setFollowerSpeeds(v kinematics.ChassisVelocity) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.followerSpeeds = v
}

func (r *Runner) latestFollowerSpeeds() kinematics.ChassisVelocity {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.followerSpeeds
}

// Close releases every backend, reporting all failures.
func (r *Runner) Close() error {
	var err error
	for i := len(r.closers) - 1; i >= 0; i-- {
		err = multierr.Append(err, r.closers[i].Close())
	}
	r.closers = nil
	return err
}

// Run drives the scenario to completion or until ctx is cancelled. Receive
// loops run beside the control loop and stop with it.
func (r *Runner) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)

	if r.bus != nil {
		g.Go(func() error { return r.bus.Run(gctx) })
	}
	for _, s := range r.sensors {
		s := s
		g.Go(func() error { return s.Run(gctx) })
	}
	g.Go(func() error {
		defer cancel()
		return r.controlLoop(gctx)
	})

	return g.Wait()
}

func (r *Runner) controlLoop(ctx context.Context) error {
	period := time.Duration(r.cfg.CycleMS) * time.Millisecond
	dt := r.cfg.Cycle()
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	start := time.Now()
	endAfter := time.Duration(r.scen.Timing.DurationS * float64(time.Second))
	r.log.Info("control loop started: period=%s", period)

	for {
		select {
		case <-ctx.Done():
			r.log.Warn("context canceled; stopping after %d cycles", r.cycles)
			return ctx.Err()
		case now := <-ticker.C:
			elapsed := now.Sub(start)
			if elapsed > endAfter {
				pose := r.drive.Pose()
				r.log.Info("scenario complete: cycles=%d pose=%s", r.cycles, pose)
				return nil
			}
			r.step(elapsed.Seconds(), dt)
		}
	}
}

// step runs one control cycle at scenario time t.
func (r *Runner) step(t, dt float64) {
	// enterSegment may reset the vision loops; they must run after it so
	// the first cycle of a segment sees a fresh measurement.
	seg, idx := r.scen.SegmentAt(t)
	if idx != r.segment {
		r.enterSegment(seg, idx)
	}
	r.vision.Periodic()

	if seg.Mode == ModeFollower {
		// stands in for the external follower emitting its next setpoint
		r.follower.Output(seg.Translation())
	}

	out := blendedControl(seg, r.latestFollowerSpeeds(), r.vision, r.cfg.Platform, r.cfg.Blended)
	switch seg.Mode {
	case ModeFollower:
		r.drive.DriveChassisVelocity(out, false)
	case ModeApproach:
		r.drive.DriveChassisVelocity(out, seg.OpenLoop)
	default:
		r.drive.Drive(kinematics.Vec(out.Vx, out.Vy), out.Omega, seg.FieldRelative, seg.OpenLoop)
	}

	if r.platform != nil {
		r.platform.Step(dt)
	}
	r.drive.Periodic()

	r.cycles++
	r.sink.Publish("runner/t", t)
	if r.platform != nil {
		truth := r.platform.Truth()
		r.sink.Publish("sim/truth_x", truth.X())
		r.sink.Publish("sim/truth_y", truth.Y())
	}
}

func (r *Runner) enterSegment(seg ScenarioSegment, idx int) {
	prev := ModeIdle
	if r.segment >= 0 {
		prev = r.scen.Segments[r.segment].Mode
	}
	r.segment = idx
	r.log.Info("segment %d: mode=%s target=%q %s", idx, seg.Mode, seg.Target, seg.Comment)

	if seg.Mode != prev {
		r.vision.Reset()
		r.setFollowerSpeeds(kinematics.ChassisVelocity{})
	}
	if seg.ZeroHeading {
		r.drive.ZeroHeading()
	}
	if seg.ResetPose != nil {
		r.drive.SetPose(seg.ResetPose.Pose())
		r.log.Info("pose reset to %s", r.drive.Pose())
	}
}
