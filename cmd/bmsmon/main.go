// cmd/bmsmon/main.go
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/tamzrod/bms-monitor/internal/alarm"
	"github.com/tamzrod/bms-monitor/internal/bus"
	"github.com/tamzrod/bms-monitor/internal/cloud"
	"github.com/tamzrod/bms-monitor/internal/config"
	"github.com/tamzrod/bms-monitor/internal/monitor"
	"github.com/tamzrod/bms-monitor/internal/rolllog"
	"github.com/tamzrod/bms-monitor/internal/telemetry"
)

func main() {
	if len(os.Args) < 2 {
		log.Fatal("usage: bmsmon <config.yaml>")
	}

	// --------------------
	// Load + validate config
	// --------------------

	cfg, err := config.Load(os.Args[1])
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}
	if err := config.Validate(cfg); err != nil {
		log.Fatalf("config validation failed: %v", err)
	}
	config.Normalize(cfg)

	logger := buildLogger(cfg.Log.App)
	defer logger.Sync()

	// --------------------
	// Bus session (fail fast at startup)
	// --------------------

	transport, err := bus.OpenSerial(bus.SerialConfig{
		Address:  cfg.Bus.Port,
		BaudRate: cfg.Bus.BaudRate,
		Timeout:  time.Duration(cfg.Bus.TimeoutMs) * time.Millisecond,
	})
	if err != nil {
		logger.Fatal("serial open failed",
			zap.String("port", cfg.Bus.Port),
			zap.Error(err))
	}
	session := bus.NewSession(transport, cfg.Bus.DeviceAddress, telemetry.FnReadHolding)

	// --------------------
	// Sampler + sinks
	// --------------------

	thresholds := alarm.Thresholds{
		PackOvervoltage:  cfg.Thresholds.PackOvervoltage,
		PackUndervoltage: cfg.Thresholds.PackUndervoltage,
		Overtemperature:  cfg.Thresholds.Overtemperature,
		Undertemperature: cfg.Thresholds.Undertemperature,
		SOCFull:          cfg.Thresholds.SOCFull,
		SOCLow:           cfg.Thresholds.SOCLow,
	}
	sampler := telemetry.NewSampler(session, thresholds, logger)

	rolling := rolllog.New(cfg.Log.Path, cfg.Log.MaxSizeBytes)
	rolling.Init("===== battery safety monitor log =====")

	cloudSession := cloud.New(cloud.Config{
		URL:              cfg.Cloud.URL,
		DeviceID:         cfg.Cloud.DeviceID,
		HandshakeTimeout: time.Duration(cfg.Cloud.HandshakeTimeoutMs) * time.Millisecond,
		ReconnectBackoff: time.Duration(cfg.Cloud.ReconnectBackoffMs) * time.Millisecond,
		IdlePoll:         time.Duration(cfg.Cloud.IdlePollMs) * time.Millisecond,
	}, logger)

	loop, err := monitor.New(
		sampler,
		rolling,
		cloudSession,
		time.Duration(cfg.Poll.IntervalMs)*time.Millisecond,
		logger,
	)
	if err != nil {
		logger.Fatal("monitor build failed", zap.Error(err))
	}

	// --------------------
	// Run until signalled or the transport dies
	// --------------------

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go cloudSession.ListenInbound(ctx)

	logger.Info("battery monitor started",
		zap.String("port", cfg.Bus.Port),
		zap.String("cloud_url", cfg.Cloud.URL),
		zap.String("uuid", cfg.Cloud.DeviceID))

	runErr := loop.Run(ctx)

	// Shutdown is best effort; failures are logged, never propagated.
	if err := cloudSession.Close(); err != nil {
		logger.Warn("cloud close failed", zap.Error(err))
	}
	if err := session.Close(); err != nil {
		logger.Warn("bus close failed", zap.Error(err))
	}

	if runErr != nil {
		logger.Error("monitor stopped", zap.Error(runErr))
		logger.Sync()
		os.Exit(1)
	}
	logger.Info("monitor stopped")
}

// buildLogger assembles the structured application logger: JSON over a
// rotating file plus a console echo on stderr.
func buildLogger(cfg config.AppLogConfig) *zap.Logger {
	writeSyncer := zapcore.AddSync(&lumberjack.Logger{
		Filename:   cfg.Filename,
		MaxSize:    cfg.MaxSize, // megabytes
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAge, // days
		Compress:   cfg.Compress,
	})

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		level = zap.InfoLevel
	}

	core := zapcore.NewTee(
		zapcore.NewCore(
			zapcore.NewJSONEncoder(encoderConfig),
			writeSyncer,
			zap.NewAtomicLevelAt(level),
		),
		zapcore.NewCore(
			zapcore.NewConsoleEncoder(encoderConfig),
			zapcore.Lock(os.Stderr),
			zap.NewAtomicLevelAt(zap.WarnLevel),
		),
	)

	return zap.New(core, zap.AddCaller())
}
