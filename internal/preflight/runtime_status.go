package preflight

import (
	"fmt"
	"os"

	"github.com/gofrs/flock"
)

// LockProbe reports whether a daemon holds the lock file.
type LockProbe struct {
	Path string
	Held bool
	Err  error
}

// ProbeLock tries the daemon lock without blocking and releases it
// immediately when it was free.
func ProbeLock(path string) LockProbe {
	probe := LockProbe{Path: path}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return probe
	}
	lock := flock.New(path)
	ok, err := lock.TryLock()
	if err != nil {
		probe.Err = err
		return probe
	}
	if !ok {
		probe.Held = true
		return probe
	}
	_ = lock.Unlock()
	return probe
}

// Detail renders a display-friendly summary for status output.
func (p LockProbe) Detail() string {
	switch {
	case p.Err != nil:
		return fmt.Sprintf("%s (error: %v)", p.Path, p.Err)
	case p.Held:
		return fmt.Sprintf("daemon running (%s locked)", p.Path)
	default:
		return "daemon not running"
	}
}
