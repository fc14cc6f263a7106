// Package dashboard keeps the onboarding checklist in step with the inventory.
package dashboard

import (
	"context"
	"fmt"

	"github.com/netops-tools/welcome-wizard/pkg/storage"
)

// Store is the persistence the reconciler needs.
type Store interface {
	CategoryExists(ctx context.Context, c storage.Category) (bool, error)
	GetStatusEntry(ctx context.Context, name string) (*storage.StatusEntry, error)
	UpdateStatusCompleted(ctx context.Context, name string, completed bool) error
	CreateStatusEntry(ctx context.Context, e storage.StatusEntry) (int64, error)
}

// Descriptor is the fixed definition of one checklist row. Links are route
// names resolved by the web layer.
type Descriptor struct {
	Name        string
	Category    storage.Category
	TargetModel string
	ListLink    string
	AddLink     string
	WizardLink  string
}

// Descriptors is the checklist, in display order.
var Descriptors = []Descriptor{
	{
		Name:        "Locations",
		Category:    storage.CategoryLocations,
		TargetModel: "dcim.location",
		ListLink:    "dcim:location_list",
		AddLink:     "dcim:location_add",
	},
	{
		Name:        "Manufacturers",
		Category:    storage.CategoryManufacturers,
		TargetModel: "dcim.manufacturer",
		ListLink:    "dcim:manufacturer_list",
		AddLink:     "dcim:manufacturer_add",
		WizardLink:  "plugins:welcome_wizard:manufacturer_import",
	},
	{
		Name:        "Device Types",
		Category:    storage.CategoryDeviceTypes,
		TargetModel: "dcim.devicetype",
		ListLink:    "dcim:devicetype_list",
		AddLink:     "dcim:devicetype_add",
		WizardLink:  "plugins:welcome_wizard:devicetype_import",
	},
	{
		Name:        "Circuit Types",
		Category:    storage.CategoryCircuitTypes,
		TargetModel: "circuits.circuittype",
		ListLink:    "circuits:circuittype_list",
		AddLink:     "circuits:circuittype_add",
	},
	{
		Name:        "Circuit Providers",
		Category:    storage.CategoryProviders,
		TargetModel: "circuits.provider",
		ListLink:    "circuits:provider_list",
		AddLink:     "circuits:provider_add",
	},
	{
		Name:        "RIRs",
		Category:    storage.CategoryRIRs,
		TargetModel: "ipam.rir",
		ListLink:    "ipam:rir_list",
		AddLink:     "ipam:rir_add",
	},
	{
		Name:        "VM Cluster Types",
		Category:    storage.CategoryClusterTypes,
		TargetModel: "virtualization.clustertype",
		ListLink:    "virtualization:clustertype_list",
		AddLink:     "virtualization:clustertype_add",
	},
}

type Reconciler struct {
	store       Store
	descriptors []Descriptor
}

func New(store Store) *Reconciler {
	return &Reconciler{store: store, descriptors: Descriptors}
}

// Reconcile recomputes completed for every descriptor and creates the missing
// entries. Existing entries keep their ignored flag and links. The first
// error stops the run; entries already written stay written.
func (r *Reconciler) Reconcile(ctx context.Context) error {
	for _, d := range r.descriptors {
		exists, err := r.store.CategoryExists(ctx, d.Category)
		if err != nil {
			return fmt.Errorf("check %s: %w", d.Name, err)
		}

		entry, err := r.store.GetStatusEntry(ctx, d.Name)
		if err != nil {
			return fmt.Errorf("load status %s: %w", d.Name, err)
		}
		if entry != nil {
			if err := r.store.UpdateStatusCompleted(ctx, d.Name, exists); err != nil {
				return fmt.Errorf("update status %s: %w", d.Name, err)
			}
			continue
		}

		_, err = r.store.CreateStatusEntry(ctx, storage.StatusEntry{
			Name:        d.Name,
			Completed:   exists,
			Ignored:     false,
			TargetModel: d.TargetModel,
			ListLink:    d.ListLink,
			AddLink:     d.AddLink,
			WizardLink:  d.WizardLink,
		})
		if err != nil {
			return fmt.Errorf("create status %s: %w", d.Name, err)
		}
	}
	return nil
}
