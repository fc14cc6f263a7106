// Package importer turns a selection of import candidates into background
// import jobs.
package importer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/netops-tools/welcome-wizard/internal/utils"
	"github.com/netops-tools/welcome-wizard/pkg/storage"
)

var (
	ErrNotFound   = errors.New("import candidate not found")
	ErrForbidden  = errors.New("permission denied")
	ErrValidation = errors.New("invalid import form")
)

// Kind describes one importable category. The zero value is not usable; use
// ManufacturerImport or DeviceTypeImport.
type Kind struct {
	Name        string
	EntityType  string
	JobName     string
	ReturnRoute string
	storageKind storage.ImportKind
	params      func(storage.ImportCandidate) map[string]any
}

var (
	ManufacturerImport = Kind{
		Name:        "manufacturer",
		EntityType:  "dcim.manufacturer",
		JobName:     "Import Manufacturer",
		ReturnRoute: "plugins:welcome_wizard:manufacturers",
		storageKind: storage.KindManufacturer,
		params: func(c storage.ImportCandidate) map[string]any {
			return map[string]any{"manufacturer_name": c.Name}
		},
	}
	DeviceTypeImport = Kind{
		Name:        "devicetype",
		EntityType:  "dcim.devicetype",
		JobName:     "Import Device Type",
		ReturnRoute: "plugins:welcome_wizard:devicetypes",
		storageKind: storage.KindDeviceType,
		params: func(c storage.ImportCandidate) map[string]any {
			return map[string]any{"filename": c.Filename}
		},
	}
)

// StorageKind is the candidate table this kind reads from.
func (k Kind) StorageKind() storage.ImportKind { return k.storageKind }

type CandidateStore interface {
	GetImport(ctx context.Context, k storage.ImportKind, id string) (*storage.ImportCandidate, error)
	GetImportsByID(ctx context.Context, k storage.ImportKind, ids []string) ([]storage.ImportCandidate, error)
}

// Enqueuer schedules a named job. It must not wait for the job to run.
type Enqueuer interface {
	Enqueue(ctx context.Context, name, user string, kwargs map[string]any) (string, error)
}

type Authorizer interface {
	HasPermission(user, action, entityType string) bool
}

// Selection is what the confirmation page needs. When Redirect is set there
// is nothing to confirm.
type Selection struct {
	Redirect string
	Object   *storage.ImportCandidate
	IDs      []string
}

// Form is the submitted confirmation form.
type Form struct {
	PKs []string
}

type Result struct {
	Count    int
	Message  string
	Redirect string
}

type Dispatcher struct {
	kind  Kind
	store CandidateStore
	jobs  Enqueuer
	authz Authorizer
}

func New(kind Kind, store CandidateStore, jobs Enqueuer, authz Authorizer) *Dispatcher {
	return &Dispatcher{kind: kind, store: store, jobs: jobs, authz: authz}
}

func (d *Dispatcher) Kind() Kind { return d.kind }

// PresentSelection resolves the confirmation view for ids. Only the first id
// is looked up; the full list is carried through the form unchanged.
func (d *Dispatcher) PresentSelection(ctx context.Context, ids []string) (*Selection, error) {
	ids = nonBlank(ids)
	if len(ids) == 0 {
		return &Selection{Redirect: d.kind.ReturnRoute}, nil
	}
	first, err := uuid.Parse(ids[0])
	if err != nil {
		return nil, fmt.Errorf("%s %q: %w", d.kind.Name, ids[0], ErrNotFound)
	}
	obj, err := d.store.GetImport(ctx, d.kind.storageKind, first.String())
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%s %s: %w", d.kind.Name, ids[0], ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &Selection{Object: obj, IDs: ids}, nil
}

// ExecuteImport enqueues one job per selected candidate that still exists.
// Permission is checked before anything else is touched.
func (d *Dispatcher) ExecuteImport(ctx context.Context, form Form, user string) (*Result, error) {
	if d.authz == nil || !d.authz.HasPermission(user, "add", d.kind.EntityType) {
		return nil, fmt.Errorf("add %s: %w", d.kind.EntityType, ErrForbidden)
	}

	ids, err := validate(form)
	if err != nil {
		return nil, err
	}

	records, err := d.store.GetImportsByID(ctx, d.kind.storageKind, ids)
	if err != nil {
		return nil, err
	}

	count := 0
	for _, rec := range records {
		if _, err := d.jobs.Enqueue(ctx, d.kind.JobName, user, d.kind.params(rec)); err != nil {
			utils.Log.WithFields(logrus.Fields{
				"job":      d.kind.JobName,
				"user":     user,
				"queued":   count,
				"selected": len(records),
			}).WithError(err).Error("Import stopped part way, queued jobs stay queued")
			return nil, fmt.Errorf("enqueue %s for %q after %d queued: %w", d.kind.JobName, rec.Name, count, err)
		}
		count++
	}

	return &Result{
		Count:    count,
		Message:  fmt.Sprintf("Onboarded %d objects.", count),
		Redirect: d.kind.ReturnRoute,
	}, nil
}

func validate(form Form) ([]string, error) {
	ids := make([]string, 0, len(form.PKs))
	for _, raw := range form.PKs {
		raw = strings.TrimSpace(raw)
		id, err := uuid.Parse(raw)
		if err != nil || len(raw) != 36 {
			return nil, fmt.Errorf("pk %q is not a valid UUID: %w", raw, ErrValidation)
		}
		ids = append(ids, id.String())
	}
	return ids, nil
}

// nonBlank trims ids and drops the empty ones an unchecked form submits.
func nonBlank(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id = strings.TrimSpace(id); id != "" {
			out = append(out, id)
		}
	}
	return out
}
