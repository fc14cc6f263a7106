package utils

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
)

const lockRetryDelay = 250 * time.Millisecond

// SyncLock serializes library syncs against one database. The file lock
// beside the database covers other processes; the slot covers goroutines of
// this one, which flock alone does not.
type SyncLock struct {
	file *flock.Flock
	slot chan struct{}
	path string
}

// NewSyncLock returns the lock for the database at dbPath.
func NewSyncLock(dbPath string) (*SyncLock, error) {
	absPath, err := GetAbsDBPath(dbPath)
	if err != nil {
		return nil, fmt.Errorf("could not get absolute db path: %w", err)
	}
	path := absPath + ".sync.lock"
	return &SyncLock{
		file: flock.New(path),
		slot: make(chan struct{}, 1),
		path: path,
	}, nil
}

// Lock waits until no other sync holds the database or ctx is done.
func (l *SyncLock) Lock(ctx context.Context) error {
	select {
	case l.slot <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}

	locked, err := l.file.TryLock()
	if err == nil && !locked {
		Log.WithField("lock", l.path).Warn("Another process is syncing this database, waiting")
		locked, err = l.file.TryLockContext(ctx, lockRetryDelay)
	}
	if err != nil || !locked {
		<-l.slot
		if err == nil {
			err = ctx.Err()
		}
		return fmt.Errorf("acquire %s: %w", l.path, err)
	}
	return nil
}

func (l *SyncLock) Unlock() error {
	defer func() { <-l.slot }()
	if err := l.file.Unlock(); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("release %s: %w", l.path, err)
	}
	return nil
}

// GetAbsDBPath resolves the database path, defaulting to ~/.config/welcome-wizard.
func GetAbsDBPath(dbPath string) (string, error) {
	if dbPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, ".config", "welcome-wizard", "welcome-wizard.sqlite"), nil
	}
	return filepath.Abs(dbPath)
}
