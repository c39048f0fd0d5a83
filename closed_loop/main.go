package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"swerve-core/config"
	"swerve-core/telemetry"
	"swerve-core/utils"
)

func main() {
	var (
		cfgPath  = flag.String("config", "config/swerve.yaml", "Controller config (YAML or JSON)")
		scenPath = flag.String("scenario", "closed_loop/scenarios/aim_and_approach.json", "Scenario file (JSON or YAML)")
		simMode  = flag.Bool("sim", true, "Run against simulated hardware instead of SocketCAN")
		iface    = flag.String("iface", "", "SocketCAN interface name (overrides config)")
		mapPath  = flag.String("map", "", "Path to the CAN map CSV (overrides config)")
		logLevel = flag.String("log", "info", "trace|debug|info|warn|error|critical")
		logFile  = flag.String("logfile", "closed_loop.log", "Log file path")
	)
	flag.Parse()

	log, err := utils.NewFileLogger(*logFile, utils.ParseLevel(*logLevel), true)
	if err != nil {
		_, _ = os.Stderr.WriteString("ERROR: cannot open " + *logFile + ": " + err.Error() + "\n")
		os.Exit(1)
	}
	defer log.Close()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Critical("Config: %v", err)
		os.Exit(1)
	}
	if *iface != "" {
		cfg.CAN.Interface = *iface
	}
	if *mapPath != "" {
		cfg.CAN.MapPath = *mapPath
	}
	if cfg.Telemetry.MQTT != nil {
		if err := telemetry.RouteClientLogs(log); err != nil {
			log.Warn("MQTT client logs stay on stderr: %v", err)
		}
	}

	scen, err := LoadScenario(*scenPath)
	if err != nil {
		log.Critical("Scenario: %v", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	runner, err := NewRunner(ctx, RunnerConfig{Config: cfg, Scenario: scen, Sim: *simMode}, log)
	if err != nil {
		log.Critical("Startup failed: %v", err)
		os.Exit(1)
	}
	defer func() {
		if err := runner.Close(); err != nil {
			log.Error("Shutdown: %v", err)
		}
	}()

	if err := runner.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Critical("Run failed: %v", err)
		os.Exit(1)
	}
}
