package library

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/netops-tools/welcome-wizard/internal/utils"
	"github.com/netops-tools/welcome-wizard/pkg/metrics"
	"github.com/netops-tools/welcome-wizard/pkg/storage"
)

// Store is everything the library package reads and writes.
type Store interface {
	GetGitRepository(ctx context.Context, slug string) (*storage.GitRepository, error)
	CreateGitRepository(ctx context.Context, r storage.GitRepository) error
	MarkRepositorySynced(ctx context.Context, slug string, t time.Time) error
	ReplaceImports(ctx context.Context, repository string, manufacturers []string, files []storage.DeviceTypeFile) (storage.ReplaceStats, error)
	GetDeviceTypeImportByFilename(ctx context.Context, filename string) (*storage.ImportCandidate, error)
	GetOrCreateManufacturer(ctx context.Context, name string) (string, bool, error)
	DeviceTypeExists(ctx context.Context, manufacturerID, model string) (bool, error)
	CreateDeviceType(ctx context.Context, dt storage.DeviceType, components []storage.Component) (string, error)
	HasActiveJob(ctx context.Context, name, key, value string) (bool, error)
}

// Locker keeps two syncs of the same database from interleaving.
type Locker interface {
	Lock(ctx context.Context) error
	Unlock() error
}

type Syncer struct {
	client  *Client
	store   Store
	metrics *metrics.Collector
	lock    Locker
}

func NewSyncer(client *Client, store Store, m *metrics.Collector) *Syncer {
	return &Syncer{client: client, store: store, metrics: m}
}

// WithLock makes every Sync hold l for its whole run.
func (s *Syncer) WithLock(l Locker) *Syncer {
	s.lock = l
	return s
}

// Sync refreshes the import candidates of the repository with the given slug.
func (s *Syncer) Sync(ctx context.Context, slug string) (storage.ReplaceStats, error) {
	repo, err := s.store.GetGitRepository(ctx, slug)
	if err != nil {
		return storage.ReplaceStats{}, fmt.Errorf("load repository %s: %w", slug, err)
	}
	repoPath, err := githubPath(repo)
	if err != nil {
		return storage.ReplaceStats{}, err
	}

	log := utils.Log.WithFields(logrus.Fields{"repository": repo.Slug, "branch": repo.Branch})
	if s.lock != nil {
		if err := s.lock.Lock(ctx); err != nil {
			return storage.ReplaceStats{}, err
		}
		defer func() {
			if err := s.lock.Unlock(); err != nil {
				log.WithError(err).Warn("Could not release sync lock")
			}
		}()
	}
	log.Info("Syncing device-type library")

	paths, err := s.client.ListTree(ctx, repoPath, repo.Branch)
	if err != nil {
		return storage.ReplaceStats{}, err
	}
	manufacturers, files := Discover(paths)

	stats, err := s.store.ReplaceImports(ctx, repo.Slug, manufacturers, files)
	if err != nil {
		return stats, fmt.Errorf("store candidates of %s: %w", repo.Slug, err)
	}
	if err := s.store.MarkRepositorySynced(ctx, repo.Slug, time.Now()); err != nil {
		return stats, err
	}
	s.metrics.SetSyncCandidates(len(manufacturers), len(files))

	log.WithFields(logrus.Fields{
		"manufacturers":         len(manufacturers),
		"device_types":          len(files),
		"manufacturers_added":   stats.ManufacturersAdded,
		"manufacturers_removed": stats.ManufacturersRemoved,
		"device_types_added":    stats.DeviceTypesAdded,
		"device_types_removed":  stats.DeviceTypesRemoved,
	}).Info("Device-type library synced")
	return stats, nil
}
