// Package lock guards mutating sync runs. A run holds an in-process mutex
// and, when configured, a PID file so that a second process started against
// the same catalog fails fast instead of racing the first.
package lock

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/agentstation/studiosync/pkg/constants"
	"github.com/agentstation/studiosync/pkg/errors"
	"github.com/agentstation/studiosync/pkg/logging"
)

// Lock is a run lock. The zero value is not usable; use New.
type Lock struct {
	mu   sync.Mutex
	path string
}

// New creates a lock backed by the PID file at path. An empty path gives an
// in-process lock only.
func New(path string) *Lock {
	return &Lock{path: path}
}

// Path returns the PID file path.
func (l *Lock) Path() string {
	return l.path
}

// Acquire takes the lock without blocking. It returns an AlreadyRunningError
// when another run holds it. The returned release func is safe to call more
// than once.
func (l *Lock) Acquire() (release func(), err error) {
	if !l.mu.TryLock() {
		return nil, errors.NewAlreadyRunningError("this process")
	}
	if l.path != "" {
		if err := l.writePID(); err != nil {
			l.mu.Unlock()
			return nil, err
		}
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			if l.path != "" {
				l.removePID()
			}
			l.mu.Unlock()
		})
	}, nil
}

func (l *Lock) writePID() error {
	if err := os.MkdirAll(filepath.Dir(l.path), constants.DirPermissions); err != nil {
		return errors.WrapIO("create", filepath.Dir(l.path), err)
	}

	for attempt := 0; attempt < 2; attempt++ {
		f, err := os.OpenFile(l.path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, constants.FilePermissions)
		if err == nil {
			_, werr := fmt.Fprintf(f, "%d", os.Getpid())
			cerr := f.Close()
			if werr != nil || cerr != nil {
				_ = os.Remove(l.path)
				return errors.WrapIO("write", l.path, errors.Join(werr, cerr))
			}
			return nil
		}
		if !os.IsExist(err) {
			return errors.WrapIO("create", l.path, err)
		}

		pid, ok := readPID(l.path)
		if ok && (pid == os.Getpid() || alive(pid)) {
			return errors.NewAlreadyRunningError(fmt.Sprintf("pid %d", pid))
		}
		logging.Warn().Str("path", l.path).Int("pid", pid).Msg("Removing stale lock file")
		if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
			return errors.WrapIO("remove", l.path, err)
		}
	}
	return errors.NewAlreadyRunningError("lock file " + l.path)
}

func (l *Lock) removePID() {
	// Leave a file that another process took over after we lost it.
	if pid, ok := readPID(l.path); ok && pid != os.Getpid() {
		return
	}
	if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
		logging.Warn().Err(err).Str("path", l.path).Msg("Failed to remove lock file")
	}
}

func readPID(path string) (int, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, false
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return 0, false
	}
	return pid, true
}
