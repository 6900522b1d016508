package store

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
)

// Lock acquisition is bounded: abm is always invoked synchronously by a
// human and must never hang on a stale lock, so after a few short
// retries the caller gets ErrLockBusy and the operation aborts.
const (
	lockAttempts   = 5
	lockRetryDelay = 100 * time.Millisecond
)

// Lock is a held per-record advisory lock.
type Lock struct {
	path  string
	token string
}

// Lock acquires the advisory lock for one project record. The lock file
// records pid and a token so a stale lock can be attributed when the
// user has to clean one up by hand.
func (s *Store) Lock(name string) (*Lock, error) {
	if err := os.MkdirAll(s.projectsDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create projects directory: %w", err)
	}

	path := s.ProjectDir(name) + ".lock"
	token := uuid.New().String()
	body := fmt.Sprintf("pid=%d token=%s\n", os.Getpid(), token)

	var lastErr error
	for attempt := 0; attempt < lockAttempts; attempt++ {
		if attempt > 0 {
			time.Sleep(lockRetryDelay)
		}
		f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
		if err != nil {
			if errors.Is(err, os.ErrExist) {
				lastErr = err
				continue
			}
			return nil, fmt.Errorf("failed to create lock file %s: %w", path, err)
		}
		_, werr := f.WriteString(body)
		cerr := f.Close()
		if werr != nil || cerr != nil {
			os.Remove(path)
			return nil, fmt.Errorf("failed to write lock file %s: %w", path, errors.Join(werr, cerr))
		}
		return &Lock{path: path, token: token}, nil
	}
	return nil, fmt.Errorf("%w: %s (%v)", ErrLockBusy, name, lastErr)
}

// Release removes the lock file. Safe to call more than once.
func (l *Lock) Release() error {
	if l.path == "" {
		return nil
	}
	err := os.Remove(l.path)
	l.path = ""
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to release lock: %w", err)
	}
	return nil
}

// WithLock runs fn while holding the record lock for name.
func (s *Store) WithLock(name string, fn func() error) error {
	lock, err := s.Lock(name)
	if err != nil {
		return err
	}
	defer lock.Release()
	return fn()
}
