package logcollector

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/skodjob/test-frame-sub000/internal/fileutil"
)

// lockFileName is created in the collector root. Parallel test processes
// that share an artifact root take turns writing.
const lockFileName = ".collect.lock"

// fileLockRetryInterval is the interval between attempts to take the lock.
const fileLockRetryInterval = 50 * time.Millisecond

// acquireRootLock takes an exclusive lock on root, creating root if needed.
func acquireRootLock(ctx context.Context, root string) (*flock.Flock, error) {
	if err := fileutil.EnsureDir(root); err != nil {
		return nil, err
	}
	lockPath := filepath.Join(root, lockFileName)
	fl := flock.New(lockPath)

	locked, err := fl.TryLockContext(ctx, fileLockRetryInterval)
	if err != nil {
		return nil, fmt.Errorf("acquiring file lock %s: %w", lockPath, err)
	}
	if !locked {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("acquiring file lock %s: %w", lockPath, ctx.Err())
		}
		return nil, fmt.Errorf("acquiring file lock %s: lock not acquired", lockPath)
	}
	return fl, nil
}

// releaseRootLock unlocks and closes fl. The lock file stays on disk so a
// concurrent holder's lock is never invalidated.
func releaseRootLock(logger *slog.Logger, fl *flock.Flock) {
	if fl == nil {
		return
	}
	if err := fl.Close(); err != nil {
		logger.Debug("failed to release file lock", "path", fl.Path(), "err", err)
	}
}
