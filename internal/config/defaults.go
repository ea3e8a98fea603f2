package config

import "runtime"

const (
	defaultBufferDir            = "~/.local/share/hindsight/buffer"
	defaultRecordingsDir        = "~/Videos/hindsight"
	defaultLogDir               = "~/.local/share/hindsight/logs"
	defaultDatabasePath         = "~/.local/share/hindsight/hindsight.db"
	defaultFFmpegBinary         = "ffmpeg"
	defaultFrameRate            = 30
	defaultVideoCodec           = "libx264"
	defaultPreset               = "ultrafast"
	defaultPixelFormat          = "yuv420p"
	defaultContainer            = "mp4"
	defaultChunkSeconds         = 10
	defaultWindowSeconds        = 120
	defaultExportWindowSeconds  = 60
	defaultNtfyServer           = "https://ntfy.sh"
	defaultNotifyRequestTimeout = 10
	defaultLogFormat            = "console"
	defaultLogLevel             = "info"
)

// defaultInputFormat picks the ffmpeg grab device for the current platform.
func defaultInputFormat() string {
	if runtime.GOOS == "darwin" {
		return "avfoundation"
	}
	return "x11grab"
}

// defaultCaptureSource picks the grab source matching defaultInputFormat.
// On X11 this is the display; on macOS it is the avfoundation device index
// for the primary screen with audio disabled.
func defaultCaptureSource() string {
	if runtime.GOOS == "darwin" {
		return "1:none"
	}
	return ":0.0"
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			BufferDir:     defaultBufferDir,
			RecordingsDir: defaultRecordingsDir,
			LogDir:        defaultLogDir,
			DatabasePath:  defaultDatabasePath,
		},
		Capture: Capture{
			FFmpegBinary: defaultFFmpegBinary,
			InputFormat:  defaultInputFormat(),
			Source:       defaultCaptureSource(),
			FrameRate:    defaultFrameRate,
			VideoCodec:   defaultVideoCodec,
			Preset:       defaultPreset,
			PixelFormat:  defaultPixelFormat,
			Container:    defaultContainer,
		},
		Buffer: Buffer{
			ChunkSeconds:  defaultChunkSeconds,
			WindowSeconds: defaultWindowSeconds,
		},
		Export: Export{
			DefaultWindowSeconds: defaultExportWindowSeconds,
		},
		Notifications: Notifications{
			NtfyServer:     defaultNtfyServer,
			RequestTimeout: defaultNotifyRequestTimeout,
			Exports:        true,
			Lifecycle:      true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
