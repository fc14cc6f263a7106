package library

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/netops-tools/welcome-wizard/internal/utils"
	"github.com/netops-tools/welcome-wizard/pkg/jobs"
	"github.com/netops-tools/welcome-wizard/pkg/storage"
)

const (
	JobPullRepository     = "Pull Git Repository"
	JobImportManufacturer = "Import Manufacturer"
	JobImportDeviceType   = "Import Device Type"
)

// Registrar is the part of the job runner used to install the library jobs.
type Registrar interface {
	Register(name string, fn jobs.Func)
}

// Jobs holds the bodies of the library's background jobs.
type Jobs struct {
	client *Client
	store  Store
	syncer *Syncer
}

func NewJobs(client *Client, store Store, syncer *Syncer) *Jobs {
	return &Jobs{client: client, store: store, syncer: syncer}
}

func (j *Jobs) Register(r Registrar) {
	r.Register(JobPullRepository, j.PullRepository)
	r.Register(JobImportManufacturer, j.ImportManufacturer)
	r.Register(JobImportDeviceType, j.ImportDeviceType)
}

func stringKwarg(job *storage.JobResult, key string) (string, error) {
	v, ok := job.Kwargs[key].(string)
	if !ok || v == "" {
		return "", fmt.Errorf("%s: missing %q argument", job.JobName, key)
	}
	return v, nil
}

func (j *Jobs) PullRepository(ctx context.Context, job *storage.JobResult) error {
	slug, err := stringKwarg(job, "repository")
	if err != nil {
		return err
	}
	_, err = j.syncer.Sync(ctx, slug)
	return err
}

func (j *Jobs) ImportManufacturer(ctx context.Context, job *storage.JobResult) error {
	name, err := stringKwarg(job, "manufacturer_name")
	if err != nil {
		return err
	}
	_, created, err := j.store.GetOrCreateManufacturer(ctx, name)
	if err != nil {
		return fmt.Errorf("import manufacturer %q: %w", name, err)
	}
	log := utils.Log.WithFields(logrus.Fields{"manufacturer": name, "user": job.User})
	if created {
		log.Info("Manufacturer imported")
	} else {
		log.Info("Manufacturer already exists")
	}
	return nil
}

// ImportDeviceType fetches the definition stored at the filename argument and
// creates the device type with its manufacturer. An existing device type is left as is.
func (j *Jobs) ImportDeviceType(ctx context.Context, job *storage.JobResult) error {
	filename, err := stringKwarg(job, "filename")
	if err != nil {
		return err
	}
	candidate, err := j.store.GetDeviceTypeImportByFilename(ctx, filename)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("no device type candidate for %s, resync the library", filename)
		}
		return err
	}
	repo, err := j.store.GetGitRepository(ctx, candidate.Repository)
	if err != nil {
		return fmt.Errorf("load repository %s: %w", candidate.Repository, err)
	}
	repoPath, err := githubPath(repo)
	if err != nil {
		return err
	}

	data, err := j.client.FetchFile(ctx, repoPath, repo.Branch, filename)
	if err != nil {
		return err
	}
	def, err := ParseDeviceType(data)
	if err != nil {
		return fmt.Errorf("%s: %w", filename, err)
	}

	mfrName := def.Manufacturer
	if mfrName == "" {
		mfrName = candidate.Manufacturer
	}
	mfrID, _, err := j.store.GetOrCreateManufacturer(ctx, mfrName)
	if err != nil {
		return fmt.Errorf("import manufacturer %q: %w", mfrName, err)
	}

	log := utils.Log.WithFields(logrus.Fields{"manufacturer": mfrName, "model": def.Model, "user": job.User})
	exists, err := j.store.DeviceTypeExists(ctx, mfrID, def.Model)
	if err != nil {
		return err
	}
	if exists {
		log.Info("Device type already exists")
		return nil
	}
	components := def.Components()
	if _, err := j.store.CreateDeviceType(ctx, def.DeviceType(mfrID), components); err != nil {
		return err
	}
	log.WithField("components", len(components)).Info("Device type imported")
	return nil
}
