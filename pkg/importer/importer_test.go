package importer

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/netops-tools/welcome-wizard/pkg/storage"
)

const (
	ciscoID   = "6f1c1a2e-4a57-4c44-9d0a-3c3f3e0e9a11"
	aristaID  = "0b8f2d7c-1e3a-4f5b-8c6d-7e8f9a0b1c2d"
	missingID = "ffffffff-ffff-4fff-bfff-ffffffffffff"
)

type fakeStore struct {
	items map[string]storage.ImportCandidate
	err   error
}

func (f *fakeStore) GetImport(ctx context.Context, k storage.ImportKind, id string) (*storage.ImportCandidate, error) {
	if f.err != nil {
		return nil, f.err
	}
	c, ok := f.items[id]
	if !ok || c.Kind != k {
		return nil, storage.ErrNotFound
	}
	return &c, nil
}

func (f *fakeStore) GetImportsByID(ctx context.Context, k storage.ImportKind, ids []string) ([]storage.ImportCandidate, error) {
	if f.err != nil {
		return nil, f.err
	}
	seen := map[string]bool{}
	var out []storage.ImportCandidate
	for _, id := range ids {
		c, ok := f.items[id]
		if !ok || c.Kind != k || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, c)
	}
	return out, nil
}

type call struct {
	name, user string
	kwargs     map[string]any
}

type fakeQueue struct {
	calls []call
	err   error
	// failAt makes the n-th Enqueue call (1-based) fail.
	failAt int
}

func (q *fakeQueue) Enqueue(ctx context.Context, name, user string, kwargs map[string]any) (string, error) {
	if q.err != nil {
		return "", q.err
	}
	if q.failAt > 0 && len(q.calls)+1 == q.failAt {
		return "", errors.New("queue full")
	}
	q.calls = append(q.calls, call{name, user, kwargs})
	return "job", nil
}

type allow map[string]bool

func (a allow) HasPermission(user, action, entityType string) bool {
	return a[user+":"+action+":"+entityType]
}

func newStore() *fakeStore {
	return &fakeStore{items: map[string]storage.ImportCandidate{
		ciscoID:  {Kind: storage.KindManufacturer, ID: ciscoID, Name: "Cisco"},
		aristaID: {Kind: storage.KindDeviceType, ID: aristaID, Name: "DCS-7050TX-64", Filename: "device-types/Arista/DCS-7050TX-64.yaml", Manufacturer: "Arista"},
	}}
}

func TestPresentSelectionEmptyRedirects(t *testing.T) {
	d := New(ManufacturerImport, newStore(), &fakeQueue{}, allow{})
	sel, err := d.PresentSelection(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, "plugins:welcome_wizard:manufacturers", sel.Redirect)
	assert.Nil(t, sel.Object)
}

func TestPresentSelectionUsesFirstID(t *testing.T) {
	d := New(ManufacturerImport, newStore(), &fakeQueue{}, allow{})
	ids := []string{ciscoID, missingID}
	sel, err := d.PresentSelection(context.Background(), ids)
	require.NoError(t, err)
	assert.Empty(t, sel.Redirect)
	assert.Equal(t, "Cisco", sel.Object.Name)
	assert.Equal(t, ids, sel.IDs)
}

func TestPresentSelectionMissingFirstID(t *testing.T) {
	d := New(ManufacturerImport, newStore(), &fakeQueue{}, allow{})
	_, err := d.PresentSelection(context.Background(), []string{missingID, ciscoID})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPresentSelectionBlankRedirects(t *testing.T) {
	d := New(ManufacturerImport, newStore(), &fakeQueue{}, allow{})
	for _, ids := range [][]string{{""}, {" ", ""}} {
		sel, err := d.PresentSelection(context.Background(), ids)
		require.NoError(t, err, ids)
		assert.Equal(t, "plugins:welcome_wizard:manufacturers", sel.Redirect)
	}
}

func TestPresentSelectionNormalizesFirstID(t *testing.T) {
	d := New(ManufacturerImport, newStore(), &fakeQueue{}, allow{})
	sel, err := d.PresentSelection(context.Background(), []string{"", " 6F1C1A2E-4A57-4C44-9D0A-3C3F3E0E9A11 "})
	require.NoError(t, err)
	assert.Equal(t, "Cisco", sel.Object.Name)
	assert.Equal(t, []string{"6F1C1A2E-4A57-4C44-9D0A-3C3F3E0E9A11"}, sel.IDs)

	_, err = d.PresentSelection(context.Background(), []string{"not-a-uuid", ciscoID})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestExecuteImportForbiddenWithInvalidForm(t *testing.T) {
	q := &fakeQueue{}
	d := New(ManufacturerImport, newStore(), q, allow{})

	for _, pks := range [][]string{{"bogus"}, {ciscoID, "12"}, nil} {
		res, err := d.ExecuteImport(context.Background(), Form{PKs: pks}, "bob")
		assert.ErrorIs(t, err, ErrForbidden, pks)
		assert.NotErrorIs(t, err, ErrValidation, pks)
		assert.Nil(t, res)
	}
	assert.Empty(t, q.calls)
}

func TestExecuteImportForbidden(t *testing.T) {
	q := &fakeQueue{}
	store := newStore()
	store.err = errors.New("store must not be touched")
	d := New(ManufacturerImport, store, q, allow{"bob:add:dcim.devicetype": true})

	_, err := d.ExecuteImport(context.Background(), Form{PKs: []string{ciscoID}}, "bob")
	assert.ErrorIs(t, err, ErrForbidden)
	assert.Empty(t, q.calls)
}

func TestExecuteImportValidation(t *testing.T) {
	q := &fakeQueue{}
	d := New(ManufacturerImport, newStore(), q, allow{"alice:add:dcim.manufacturer": true})

	for _, pks := range [][]string{{"not-a-uuid"}, {ciscoID, "12"}, {"{" + ciscoID + "}"}} {
		_, err := d.ExecuteImport(context.Background(), Form{PKs: pks}, "alice")
		assert.ErrorIs(t, err, ErrValidation, pks)
	}
	assert.Empty(t, q.calls)
}

func TestExecuteImportManufacturers(t *testing.T) {
	q := &fakeQueue{}
	d := New(ManufacturerImport, newStore(), q, allow{"alice:add:dcim.manufacturer": true})

	res, err := d.ExecuteImport(context.Background(), Form{PKs: []string{ciscoID, missingID}}, "alice")
	require.NoError(t, err)
	assert.Equal(t, 1, res.Count)
	assert.Equal(t, "Onboarded 1 objects.", res.Message)
	assert.Equal(t, "plugins:welcome_wizard:manufacturers", res.Redirect)
	require.Len(t, q.calls, 1)
	assert.Equal(t, call{"Import Manufacturer", "alice", map[string]any{"manufacturer_name": "Cisco"}}, q.calls[0])
}

func TestExecuteImportDeviceTypes(t *testing.T) {
	q := &fakeQueue{}
	d := New(DeviceTypeImport, newStore(), q, allow{"alice:add:dcim.devicetype": true})

	// Upper-case input is accepted and normalized.
	res, err := d.ExecuteImport(context.Background(), Form{PKs: []string{"0B8F2D7C-1E3A-4F5B-8C6D-7E8F9A0B1C2D"}}, "alice")
	require.NoError(t, err)
	assert.Equal(t, 1, res.Count)
	require.Len(t, q.calls, 1)
	assert.Equal(t, "Import Device Type", q.calls[0].name)
	assert.Equal(t, map[string]any{"filename": "device-types/Arista/DCS-7050TX-64.yaml"}, q.calls[0].kwargs)
}

func TestExecuteImportNoMatches(t *testing.T) {
	q := &fakeQueue{}
	d := New(DeviceTypeImport, newStore(), q, allow{"alice:add:dcim.devicetype": true})

	res, err := d.ExecuteImport(context.Background(), Form{}, "alice")
	require.NoError(t, err)
	assert.Equal(t, 0, res.Count)
	assert.Equal(t, "Onboarded 0 objects.", res.Message)
	assert.Empty(t, q.calls)

	// A manufacturer id never matches the device type table.
	res, err = d.ExecuteImport(context.Background(), Form{PKs: []string{ciscoID}}, "alice")
	require.NoError(t, err)
	assert.Equal(t, 0, res.Count)
}

func TestExecuteImportEnqueueFailure(t *testing.T) {
	q := &fakeQueue{err: errors.New("queue down")}
	d := New(ManufacturerImport, newStore(), q, allow{"alice:add:dcim.manufacturer": true})

	_, err := d.ExecuteImport(context.Background(), Form{PKs: []string{ciscoID}}, "alice")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrValidation)
}

func TestExecuteImportStopsOnEnqueueFailure(t *testing.T) {
	store := newStore()
	store.items[missingID] = storage.ImportCandidate{Kind: storage.KindManufacturer, ID: missingID, Name: "Juniper"}
	q := &fakeQueue{failAt: 2}
	d := New(ManufacturerImport, store, q, allow{"alice:add:dcim.manufacturer": true})

	res, err := d.ExecuteImport(context.Background(), Form{PKs: []string{ciscoID, missingID}}, "alice")
	require.Error(t, err)
	assert.Nil(t, res)
	assert.Contains(t, err.Error(), "after 1 queued")
	require.Len(t, q.calls, 1, "jobs queued before the failure stay queued")
}
