package library

import (
	"context"
	"errors"
	"fmt"

	"github.com/netops-tools/welcome-wizard/internal/utils"
	"github.com/netops-tools/welcome-wizard/pkg/storage"
)

// DefaultRepository describes the community device-type library.
var DefaultRepository = storage.GitRepository{
	Slug:             "devicetype_library",
	Name:             "Devicetype-library",
	RemoteURL:        "https://github.com/netbox-community/devicetype-library.git",
	Branch:           "master",
	ProvidedContents: []string{"welcome_wizard.import_wizard"},
}

type Enqueuer interface {
	Enqueue(ctx context.Context, name, user string, kwargs map[string]any) (string, error)
}

// Trigger starts a library pull when a wizard list is found empty.
type Trigger struct {
	store Store
	jobs  Enqueuer
	repo  storage.GitRepository
}

func NewTrigger(store Store, jobs Enqueuer, repo storage.GitRepository) *Trigger {
	return &Trigger{store: store, jobs: jobs, repo: repo}
}

// CheckSync enqueues a pull of the library when enabled and the list is empty.
// It creates the repository record on first use and does nothing while a pull
// for the repository is already pending or running. It reports whether a
// job was enqueued.
func (t *Trigger) CheckSync(ctx context.Context, enabled, empty bool, user string) (bool, error) {
	if !enabled || !empty {
		return false, nil
	}

	_, err := t.store.GetGitRepository(ctx, t.repo.Slug)
	if errors.Is(err, storage.ErrNotFound) {
		if err := t.store.CreateGitRepository(ctx, t.repo); err != nil {
			return false, fmt.Errorf("create repository %s: %w", t.repo.Slug, err)
		}
		utils.Log.WithField("repository", t.repo.Slug).Info("Registered device-type library repository")
	} else if err != nil {
		return false, err
	}

	active, err := t.store.HasActiveJob(ctx, JobPullRepository, "repository", t.repo.Slug)
	if err != nil {
		return false, err
	}
	if active {
		utils.Log.WithField("repository", t.repo.Slug).Debug("Library pull already queued")
		return false, nil
	}

	if _, err := t.jobs.Enqueue(ctx, JobPullRepository, user, map[string]any{"repository": t.repo.Slug}); err != nil {
		return false, err
	}
	return true, nil
}
