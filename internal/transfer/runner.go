package transfer

import (
	"context"
	"errors"
	"log/slog"

	"cmd360/internal/device"
	"cmd360/internal/logging"
	"cmd360/internal/transcode"
)

// Runner executes the put, get, and list workflows. Each call opens one
// device session and closes it before returning.
type Runner struct {
	dialer     device.Dialer
	transcoder transcode.Transcoder
	lockDir    string
	reporter   *Reporter
	logger     *slog.Logger
}

// Option configures a Runner.
type Option func(*Runner)

// WithTranscoder sets the converter used by Put.
func WithTranscoder(t transcode.Transcoder) Option {
	return func(r *Runner) {
		r.transcoder = t
	}
}

// WithLockDir enables the per-device lock in dir.
func WithLockDir(dir string) Option {
	return func(r *Runner) {
		r.lockDir = dir
	}
}

// WithReporter sets where progress lines go. Without one, progress is
// discarded.
func WithReporter(rep *Reporter) Option {
	return func(r *Runner) {
		if rep != nil {
			r.reporter = rep
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		r.logger = logging.NewComponentLogger(logger, "transfer")
	}
}

// NewRunner builds a Runner that opens sessions through dialer.
func NewRunner(dialer device.Dialer, opts ...Option) *Runner {
	if dialer == nil {
		dialer = device.FTPDialer
	}
	r := &Runner{
		dialer:   dialer,
		reporter: NewReporter(nil, nil),
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// open takes the device lock, dials, and returns a release func that closes
// the session and drops the lock. release is safe to defer on every path.
func (r *Runner) open(ctx context.Context, cfg device.Config) (device.Session, func(), error) {
	addr := device.Address(cfg.Host, cfg.Port)

	var lock *device.Lock
	if r.lockDir != "" {
		var err error
		lock, err = device.AcquireLock(r.lockDir, addr)
		if err != nil {
			return nil, nil, err
		}
	}

	if cfg.Logger == nil {
		cfg.Logger = logging.WithContext(ctx, r.logger)
	}
	session, err := r.dialer.Dial(ctx, cfg)
	if err != nil {
		_ = lock.Release()
		return nil, nil, err
	}

	release := func() {
		if err := session.Close(); err != nil {
			r.logger.Debug("session close failed", logging.String(logging.FieldHost, addr), logging.Error(err))
		}
		if err := lock.Release(); err != nil {
			r.logger.Debug("lock release failed", logging.String(logging.FieldHost, addr), logging.Error(err))
		}
	}
	return session, release, nil
}

var errNoHost = errors.New("device host required")

func checkHost(cfg device.Config) error {
	if cfg.Host == "" {
		return errNoHost
	}
	return nil
}
