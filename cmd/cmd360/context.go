package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"cmd360/internal/config"
	"cmd360/internal/deps"
	"cmd360/internal/device"
	"cmd360/internal/logging"
	"cmd360/internal/transcode"
	"cmd360/internal/transfer"
)

type commandContext struct {
	configFlag    *string
	logLevelFlag  *string
	logFormatFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error

	// dialer and transcoder replace the real FTP client and ffmpeg when set.
	dialer     device.Dialer
	transcoder transcode.Transcoder
}

// contextOption replaces collaborators of a commandContext.
type contextOption func(*commandContext)

func newCommandContext(configFlag, logLevelFlag, logFormatFlag *string) *commandContext {
	return &commandContext{
		configFlag:    configFlag,
		logLevelFlag:  logLevelFlag,
		logFormatFlag: logFormatFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if c.logLevelFlag != nil && strings.TrimSpace(*c.logLevelFlag) != "" {
			cfg.Logging.Level = strings.ToLower(strings.TrimSpace(*c.logLevelFlag))
		}
		if c.logFormatFlag != nil && strings.TrimSpace(*c.logFormatFlag) != "" {
			cfg.Logging.Format = strings.ToLower(strings.TrimSpace(*c.logFormatFlag))
		}
		if err := cfg.Validate(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// session loads the config, builds the logger, and tags ctx with a fresh
// session id for the invocation. Loggers downstream pick the id up through
// logging.WithContext.
func (c *commandContext) session(cmd *cobra.Command) (context.Context, *config.Config, *slog.Logger, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, nil, nil, err
	}
	logger, err := logging.NewFromConfig(cfg, cmd.ErrOrStderr())
	if err != nil {
		return nil, nil, nil, fmt.Errorf("init logger: %w", err)
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return logging.WithSession(ctx), cfg, logger, nil
}

func (c *commandContext) newRunner(cmd *cobra.Command, cfg *config.Config, logger *slog.Logger) *transfer.Runner {
	var meterOut io.Writer
	if shouldColorize(cmd.ErrOrStderr()) {
		meterOut = cmd.ErrOrStderr()
	}
	return transfer.NewRunner(c.dialer,
		transfer.WithTranscoder(c.transcoderFor(cfg, logger)),
		transfer.WithLockDir(cfg.Paths.LockDir),
		transfer.WithReporter(transfer.NewReporter(cmd.OutOrStdout(), meterOut)),
		transfer.WithLogger(logger),
	)
}

func (c *commandContext) transcoderFor(cfg *config.Config, logger *slog.Logger) transcode.Transcoder {
	if c.transcoder != nil {
		return c.transcoder
	}
	ff := transcode.NewFFmpeg(
		transcode.WithBinary(cfg.Transcoder.FFmpegBinary),
		transcode.WithLogger(logger),
	)
	if !cfg.Transcoder.VerifyOutput {
		return ff
	}
	probe := deps.ResolveFFprobe(cfg.Transcoder.FFmpegBinary, cfg.Transcoder.FFprobeBinary)
	return transcode.Verified(ff, transcode.NewVerifier(probe))
}

// loginFlags are the per-command credential overrides. Unset flags fall
// back to the config file, whose defaults are the factory login.
type loginFlags struct {
	username string
	password string
}

func (l *loginFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&l.username, "username", "", "FTP username (default from config, "+config.DefaultUsername+")")
	cmd.Flags().StringVar(&l.password, "password", "", "FTP password (default from config, "+config.DefaultPassword+")")
}

func (l *loginFlags) deviceConfig(cmd *cobra.Command, cfg *config.Config, host string, logger *slog.Logger) (device.Config, error) {
	if err := config.ValidateHost(host); err != nil {
		return device.Config{}, err
	}
	dc := device.Config{
		Host:     strings.TrimSpace(host),
		Port:     cfg.Device.Port,
		Username: cfg.Device.Username,
		Password: cfg.Device.Password,
		Timeout:  cfg.Timeout(),
		Logger:   logger,
	}
	if cmd.Flags().Changed("username") {
		dc.Username = l.username
	}
	if cmd.Flags().Changed("password") {
		dc.Password = l.password
	}
	return dc, nil
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
