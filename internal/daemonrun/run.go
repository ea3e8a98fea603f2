package daemonrun

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"hindsight/internal/buffer"
	"hindsight/internal/catalog"
	"hindsight/internal/config"
	"hindsight/internal/controller"
	"hindsight/internal/daemon"
	"hindsight/internal/deps"
	"hindsight/internal/export"
	"hindsight/internal/ipc"
	"hindsight/internal/logging"
	"hindsight/internal/notifications"
	"hindsight/internal/recorder"
	"hindsight/internal/services/ffmpeg"
)

// Options configures daemon process runtime behavior.
type Options struct {
	// LogLevel overrides the configured log level when non-empty.
	LogLevel string
	// SocketPath overrides the IPC socket location when non-empty.
	SocketPath string
}

// Run boots the hindsight daemon and blocks until SIGINT or SIGTERM.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := cfg.EnsureDirectories(); err != nil {
		return fmt.Errorf("prepare directories: %w", err)
	}

	level := cfg.Logging.Level
	if strings.TrimSpace(opts.LogLevel) != "" {
		level = opts.LogLevel
	}
	logger, err := logging.New(logging.Options{
		Level:       level,
		Format:      cfg.Logging.Format,
		OutputPaths: []string{"stdout", cfg.DaemonLogPath()},
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	logStartupSnapshot(logger, cfg)

	pidPath := cfg.PIDFilePath()
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	cat, err := catalog.Open(cfg)
	if err != nil {
		logger.Error("open recordings catalog", logging.Error(err))
		return err
	}

	store := buffer.NewStore(logger)
	client := ffmpeg.NewCLI(grabSettings(cfg), ffmpeg.WithBinary(cfg.Capture.FFmpegBinary))
	notifier := notifications.NewService(cfg)

	rec := recorder.New(client, store, recorder.Settings{
		BufferDir:     cfg.Paths.BufferDir,
		ChunkDuration: cfg.ChunkDuration(),
		Window:        cfg.BufferWindow(),
		Extension:     cfg.ChunkExtension(),
	}, logger)

	exporter := export.New(client, store, cat, notifier, export.Settings{
		RecordingsDir: cfg.Paths.RecordingsDir,
		Extension:     cfg.ChunkExtension(),
	}, logger)

	ctl := controller.New(cfg, client, store, rec, exporter, notifier, logger)

	d, err := daemon.New(cfg, ctl, cat, logger)
	if err != nil {
		_ = cat.Close()
		return fmt.Errorf("create daemon: %w", err)
	}
	defer d.Close()

	// Take the single-instance lock before binding the socket so a second
	// daemon cannot steal a live instance's socket file.
	if err := d.Start(signalCtx); err != nil {
		logger.Error("daemon start failed",
			logging.Error(err),
			logging.String(logging.FieldEventType, "daemon_start_failed"),
			logging.String(logging.FieldErrorHint, "check for another running instance or a stale lock file"))
		return err
	}

	socketPath := cfg.SocketPath()
	if strings.TrimSpace(opts.SocketPath) != "" {
		socketPath = opts.SocketPath
	}
	ipcServer, err := ipc.NewServer(signalCtx, socketPath, d, logger)
	if err != nil {
		return fmt.Errorf("start IPC server: %w", err)
	}
	defer ipcServer.Close()
	ipcServer.Serve()

	<-signalCtx.Done()
	logger.Info("hindsight daemon shutting down")
	return nil
}

func grabSettings(cfg *config.Config) ffmpeg.GrabSettings {
	return ffmpeg.GrabSettings{
		InputFormat: cfg.Capture.InputFormat,
		Source:      cfg.Capture.Source,
		FrameRate:   cfg.Capture.FrameRate,
		VideoSize:   cfg.Capture.VideoSize,
		VideoCodec:  cfg.Capture.VideoCodec,
		Preset:      cfg.Capture.Preset,
		PixelFormat: cfg.Capture.PixelFormat,
		ExtraArgs:   cfg.Capture.ExtraArgs,
	}
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0o644)
}

func logStartupSnapshot(logger *slog.Logger, cfg *config.Config) {
	status := deps.CheckFFmpeg(cfg.Capture.FFmpegBinary)
	logger.Info("dependency snapshot",
		logging.String(logging.FieldEventType, "dependency_snapshot"),
		logging.Bool("ffmpeg_available", status.Available),
		logging.String("ffmpeg_binary", status.Command),
		logging.String("capture_input", cfg.Capture.InputFormat),
		logging.String("capture_source", cfg.Capture.Source),
		logging.Int("chunk_seconds", cfg.Buffer.ChunkSeconds),
		logging.Int("window_seconds", cfg.Buffer.WindowSeconds),
		logging.Bool("notifications_configured", strings.TrimSpace(cfg.Notifications.NtfyTopic) != ""),
	)
}
