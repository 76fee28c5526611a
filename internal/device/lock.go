package device

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofrs/flock"
)

// ErrDeviceBusy is returned when another cmd360 process holds the lock for
// the same device.
var ErrDeviceBusy = errors.New("device is busy with another cmd360 transfer")

// Lock serializes sessions against one device address. The Instant Replay
// accepts a single control connection at a time.
type Lock struct {
	path  string
	flock *flock.Flock
}

// AcquireLock takes the lock for addr in dir without blocking.
func AcquireLock(dir, addr string) (*Lock, error) {
	if strings.TrimSpace(dir) == "" {
		dir = os.TempDir()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create lock dir: %w", err)
	}
	path := filepath.Join(dir, LockFileName(addr))
	fl := flock.New(path)
	ok, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w (%s)", ErrDeviceBusy, addr)
	}
	return &Lock{path: path, flock: fl}, nil
}

// LockFileName maps a device address to a file name safe on every platform.
func LockFileName(addr string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(addr)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '.':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	name := strings.Trim(b.String(), "_.")
	if name == "" {
		name = "unknown"
	}
	return "cmd360-" + name + ".lock"
}

// Path returns the lock file location.
func (l *Lock) Path() string {
	if l == nil {
		return ""
	}
	return l.path
}

// Release drops the lock. It is safe to call on a nil Lock.
func (l *Lock) Release() error {
	if l == nil || l.flock == nil {
		return nil
	}
	if err := l.flock.Unlock(); err != nil {
		return fmt.Errorf("release lock: %w", err)
	}
	return nil
}
