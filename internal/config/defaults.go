package config

import "os"

const (
	// DefaultUsername is the factory FTP user of the Instant Replay.
	DefaultUsername = "360USER"
	// DefaultPassword is the factory FTP password of the Instant Replay.
	DefaultPassword = "PASSWORD"

	defaultPort          = 21
	defaultDumpDir       = "dump"
	defaultFFmpegBinary  = "ffmpeg"
	defaultFFprobeBinary = "ffprobe"
	defaultLogFormat     = "console"
	defaultLogLevel      = "warn"
)

// DefaultExcludedExtensions lists the device sidecar formats put never converts.
var DefaultExcludedExtensions = []string{".pk", ".xmp"}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Device: Device{
			Username: DefaultUsername,
			Password: DefaultPassword,
			Port:     defaultPort,
		},
		Paths: Paths{
			DumpDir: defaultDumpDir,
			LockDir: os.TempDir(),
		},
		Transcoder: Transcoder{
			FFmpegBinary:  defaultFFmpegBinary,
			FFprobeBinary: defaultFFprobeBinary,
		},
		Put: Put{
			ExcludedExtensions: append([]string(nil), DefaultExcludedExtensions...),
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
