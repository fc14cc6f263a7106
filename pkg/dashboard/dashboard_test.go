package dashboard

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/netops-tools/welcome-wizard/pkg/storage"
)

func openDB(t *testing.T) *storage.DB {
	t.Helper()
	db, err := storage.Open(filepath.Join(t.TempDir(), "dash.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestReconcileCreatesOneEntryPerCategory(t *testing.T) {
	ctx := context.Background()
	db := openDB(t)

	_, err := db.CreateInventoryItem(ctx, storage.CategoryManufacturers, "Juniper")
	require.NoError(t, err)

	r := New(db)
	require.NoError(t, r.Reconcile(ctx))
	require.NoError(t, r.Reconcile(ctx))

	entries, err := db.ListStatusEntries(ctx)
	require.NoError(t, err)
	require.Len(t, entries, len(Descriptors))
	for i, e := range entries {
		d := Descriptors[i]
		assert.Equal(t, d.Name, e.Name)
		assert.Equal(t, d.Category == storage.CategoryManufacturers, e.Completed, e.Name)
		assert.False(t, e.Ignored)
		assert.Equal(t, d.ListLink, e.ListLink)
		assert.Equal(t, d.AddLink, e.AddLink)
		assert.Equal(t, d.WizardLink, e.WizardLink)
	}
	assert.Equal(t, "plugins:welcome_wizard:devicetype_import", entries[2].WizardLink)
	assert.Empty(t, entries[0].WizardLink)
}

func TestReconcileTracksCategoryChanges(t *testing.T) {
	ctx := context.Background()
	db := openDB(t)
	r := New(db)

	require.NoError(t, r.Reconcile(ctx))
	e, err := db.GetStatusEntry(ctx, "RIRs")
	require.NoError(t, err)
	assert.False(t, e.Completed)

	_, err = db.CreateInventoryItem(ctx, storage.CategoryRIRs, "RIPE")
	require.NoError(t, err)
	require.NoError(t, r.Reconcile(ctx))

	e, err = db.GetStatusEntry(ctx, "RIRs")
	require.NoError(t, err)
	assert.True(t, e.Completed)
}

func TestReconcilePreservesIgnored(t *testing.T) {
	ctx := context.Background()
	db := openDB(t)
	r := New(db)

	require.NoError(t, r.Reconcile(ctx))
	require.NoError(t, db.SetStatusIgnored(ctx, "Circuit Providers", true))
	require.NoError(t, r.Reconcile(ctx))

	e, err := db.GetStatusEntry(ctx, "Circuit Providers")
	require.NoError(t, err)
	assert.True(t, e.Ignored)
}

// failingStore wraps a real store and fails CategoryExists for one category.
type failingStore struct {
	Store
	failOn storage.Category
}

func (f failingStore) CategoryExists(ctx context.Context, c storage.Category) (bool, error) {
	if c == f.failOn {
		return false, errors.New("db unavailable")
	}
	return f.Store.CategoryExists(ctx, c)
}

func TestReconcileStopsOnFirstError(t *testing.T) {
	ctx := context.Background()
	db := openDB(t)
	r := New(failingStore{Store: db, failOn: storage.CategoryCircuitTypes})

	err := r.Reconcile(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Circuit Types")

	entries, err := db.ListStatusEntries(ctx)
	require.NoError(t, err)
	assert.Len(t, entries, 3, "entries before the failure stay written")
}
