// Command rover drives the rover from a gamepad.
//
// Usage:
//
//	rover -steering ackermann -actuator can -can-iface can0
//	rover -transport remote -actuator dryrun -http :8080
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/teslashibe/go-rover/internal/config"
	"github.com/teslashibe/go-rover/internal/log"
	"github.com/teslashibe/go-rover/pkg/drive"
	"github.com/teslashibe/go-rover/pkg/gamepad"
	"github.com/teslashibe/go-rover/pkg/hub"
	"github.com/teslashibe/go-rover/pkg/remote"
	"github.com/teslashibe/go-rover/pkg/robot"
	"github.com/teslashibe/go-rover/pkg/rover"
	"github.com/teslashibe/go-rover/pkg/telemetry"
	"github.com/teslashibe/go-rover/pkg/web"
)

func main() {
	configPath := flag.String("config", "", "YAML config file")
	steering := flag.String("steering", "", "Steering mode: simple or ackermann (env ROVER_STEERING_MODE)")
	transport := flag.String("transport", "", "Gamepad source: hidraw or remote")
	hidraw := flag.String("hidraw", "", "hidraw device node (default: discover by vendor ID)")
	actuator := flag.String("actuator", "", "Actuator backend: can or dryrun")
	canIface := flag.String("can-iface", "", "SocketCAN interface (env ROVER_CAN_IFACE)")
	httpAddr := flag.String("http", "", "Dashboard listen address, \"off\" to disable")
	mqttBroker := flag.String("mqtt", "", "MQTT broker for telemetry, e.g. tcp://localhost:1883")
	logLevel := flag.String("log", "", "Log level: debug, info, warn, error")
	flag.Parse()

	f, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		os.Exit(1)
	}
	override(&f.Steering, *steering)
	override(&f.Transport.Kind, *transport)
	override(&f.Transport.HIDRaw, *hidraw)
	override(&f.Actuator.Kind, *actuator)
	override(&f.Actuator.CANInterface, *canIface)
	override(&f.HTTP.Addr, *httpAddr)
	override(&f.MQTT.Broker, *mqttBroker)
	override(&f.LogLevel, *logLevel)
	if err := f.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		os.Exit(1)
	}

	log.Init(f.LogLevel)
	logger := log.L()

	fmt.Println("🚙 go-rover")
	fmt.Printf("   Steering:  %s\n", f.Steering)
	fmt.Printf("   Gamepad:   %s\n", f.Transport.Kind)
	fmt.Printf("   Actuator:  %s\n", f.Actuator.Kind)
	fmt.Println()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, f, logger); err != nil {
		logger.Error("rover stopped", "error", err)
		os.Exit(1)
	}
	logger.Info("rover stopped")
}

func override(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func run(ctx context.Context, f *config.File, logger *slog.Logger) error {
	mode, err := drive.ParseSteeringMode(f.Steering)
	if err != nil {
		return err
	}
	cfg := rover.DefaultConfig()
	cfg.Steering = mode
	cfg.LEDBrightness = f.LEDBrightness

	httpEnabled := f.HTTP.Addr != "" && f.HTTP.Addr != "off"

	// gamepad source
	var opener gamepad.Opener
	var bridge *remote.Bridge
	switch f.Transport.Kind {
	case "remote":
		if !httpEnabled {
			return errors.New("remote transport needs the HTTP server")
		}
		bridge = remote.NewBridge(remote.DefaultConfig(), logger)
		opener = bridge
	default:
		hc := gamepad.DefaultHIDRawConfig()
		hc.Path = f.Transport.HIDRaw
		opener = &gamepad.HIDRawOpener{Config: hc, Logger: log.Component("hidraw")}
	}

	// actuators
	var act robot.Actuator
	switch f.Actuator.Kind {
	case "dryrun":
		act = robot.NewDryRun(log.Component("dryrun"))
	default:
		cc := robot.DefaultCANConfig()
		cc.Interface = f.Actuator.CANInterface
		if f.Actuator.CANBaseID != 0 {
			cc.BaseID = f.Actuator.CANBaseID
		}
		cc.Brightness = f.LEDBrightness
		if err := cc.Validate(); err != nil {
			return err
		}
		act = robot.NewCANActuator(cc, log.Component("can"))
	}

	// telemetry sinks
	tc := telemetry.DefaultConfig()
	tc.Broker = f.MQTT.Broker
	tc.ClientID = f.MQTT.ClientID
	override(&tc.Topic, f.MQTT.Topic)
	pub, err := telemetry.New(ctx, tc, logger)
	if err != nil {
		return err
	}
	defer pub.Close()

	opts := []rover.Option{rover.WithLogger(logger), rover.WithReporter(pub)}
	var telemetryHub *hub.Hub
	if httpEnabled {
		telemetryHub = hub.New("telemetry", logger)
		opts = append(opts, rover.WithReporter(telemetryHub))
	}

	r, err := rover.New(cfg, opener, act, opts...)
	if err != nil {
		return err
	}

	srvCtx, cancelSrv := context.WithCancel(ctx)
	defer cancelSrv()
	srvDone := make(chan error, 1)
	if httpEnabled {
		srv := web.NewServer(web.Config{Addr: f.HTTP.Addr, AccessLog: f.LogLevel == "debug"}, r, telemetryHub, logger)
		if bridge != nil {
			bridge.RegisterRoutes(srv.App())
			bridge.RegisterAPIRoutes(srv.App().Group("/api"))
		}
		go func() {
			err := srv.Run(srvCtx)
			if err != nil {
				logger.Error("dashboard server failed", "error", err)
			}
			srvDone <- err
		}()
	} else {
		srvDone <- nil
	}

	runErr := r.Run(ctx)

	cancelSrv()
	<-srvDone
	return runErr
}
