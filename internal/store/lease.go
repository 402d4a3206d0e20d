package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// LeaseStaleAfter is how old a lease file may get before it is presumed
// abandoned by a crashed run and taken over.
const LeaseStaleAfter = 10 * time.Minute

const leaseFileName = ".lock"

// Lease is an exclusive claim on the memory home for one synthesis run.
type Lease struct {
	path string
}

// AcquireLease claims the synthesis lease. It returns ErrLocked while another
// live run holds it.
func (s *Store) AcquireLease() (*Lease, error) {
	if err := os.MkdirAll(s.synthesisDir, 0o755); err != nil {
		return nil, fmt.Errorf("create synthesis directory: %w", err)
	}
	path := filepath.Join(s.synthesisDir, leaseFileName)

	for attempt := 0; attempt < 2; attempt++ {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
		if err == nil {
			_, _ = f.WriteString(strconv.Itoa(os.Getpid()) + "\n")
			if err := f.Close(); err != nil {
				os.Remove(path)
				return nil, fmt.Errorf("write lease: %w", err)
			}
			return &Lease{path: path}, nil
		}
		if !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("acquire lease: %w", err)
		}

		info, statErr := os.Stat(path)
		if statErr != nil {
			// Released between our open and stat; try again.
			continue
		}
		if time.Since(info.ModTime()) < LeaseStaleAfter {
			return nil, ErrLocked
		}
		s.logger.Warn("taking over stale synthesis lease", "path", path, "age", time.Since(info.ModTime()).Round(time.Second))
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("remove stale lease: %w", err)
		}
	}
	return nil, ErrLocked
}

// Release gives the lease up. Releasing twice is harmless.
func (l *Lease) Release() error {
	if err := os.Remove(l.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
