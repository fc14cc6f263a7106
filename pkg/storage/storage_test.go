package storage

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestCategoryExists(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	for _, c := range Categories {
		ok, err := db.CategoryExists(ctx, c)
		require.NoError(t, err)
		assert.False(t, ok, c)
	}

	_, err := db.CreateInventoryItem(ctx, CategoryRIRs, "ARIN")
	require.NoError(t, err)
	ok, err := db.CategoryExists(ctx, CategoryRIRs)
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = db.CategoryExists(ctx, Category("programs"))
	assert.Error(t, err)
	_, err = db.CreateInventoryItem(ctx, CategoryDeviceTypes, "x")
	assert.Error(t, err)
}

func TestGetOrCreateManufacturer(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	id, created, err := db.GetOrCreateManufacturer(ctx, "Cisco Systems")
	require.NoError(t, err)
	assert.True(t, created)

	again, created, err := db.GetOrCreateManufacturer(ctx, "Cisco Systems")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, id, again)
}

func TestCreateDeviceType(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	mfr, _, err := db.GetOrCreateManufacturer(ctx, "Arista")
	require.NoError(t, err)

	id, err := db.CreateDeviceType(ctx, DeviceType{ManufacturerID: mfr, Model: "DCS-7050TX-64", UHeight: 1, IsFullDepth: true}, []Component{
		{Kind: "interface", Name: "Ethernet1", Type: "10gbase-t"},
		{Kind: "console-port", Name: "Console", Type: "rj-45"},
	})
	require.NoError(t, err)

	exists, err := db.DeviceTypeExists(ctx, mfr, "DCS-7050TX-64")
	require.NoError(t, err)
	assert.True(t, exists)

	dt, err := db.GetDeviceTypeByModel(ctx, "Arista", "DCS-7050TX-64")
	require.NoError(t, err)
	assert.Equal(t, id, dt.ID)
	assert.Equal(t, "dcs-7050tx-64", dt.Slug)
	assert.True(t, dt.IsFullDepth)

	comps, err := db.ListComponents(ctx, id)
	require.NoError(t, err)
	require.Len(t, comps, 2)
	assert.Equal(t, "console-port", comps[0].Kind)

	_, err = db.CreateDeviceType(ctx, DeviceType{ManufacturerID: mfr, Model: "DCS-7050TX-64"}, nil)
	assert.Error(t, err, "duplicate model per manufacturer")

	_, err = db.GetDeviceTypeByModel(ctx, "Arista", "nope")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestStatusEntries(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	got, err := db.GetStatusEntry(ctx, "Locations")
	require.NoError(t, err)
	assert.Nil(t, got)

	_, err = db.CreateStatusEntry(ctx, StatusEntry{Name: "Locations", TargetModel: "dcim.location", ListLink: "dcim:location_list", AddLink: "dcim:location_add"})
	require.NoError(t, err)
	_, err = db.CreateStatusEntry(ctx, StatusEntry{Name: "Locations"})
	assert.Error(t, err, "names are unique")

	require.NoError(t, db.UpdateStatusCompleted(ctx, "Locations", true))
	require.NoError(t, db.UpdateStatusCompleted(ctx, "Missing", true))
	require.NoError(t, db.SetStatusIgnored(ctx, "Locations", true))
	assert.ErrorIs(t, db.SetStatusIgnored(ctx, "Missing", true), ErrNotFound)

	got, err = db.GetStatusEntry(ctx, "Locations")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.Completed)
	assert.True(t, got.Ignored)
	assert.Equal(t, "dcim:location_add", got.AddLink)

	all, err := db.ListStatusEntries(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestReplaceImports(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	files := []DeviceTypeFile{
		{Name: "DCS-7050TX-64", Filename: "device-types/Arista/DCS-7050TX-64.yaml", Manufacturer: "Arista"},
		{Name: "C9300-48P", Filename: "device-types/Cisco/C9300-48P.yaml", Manufacturer: "Cisco"},
	}
	stats, err := db.ReplaceImports(ctx, "devicetype_library", []string{"Arista", "Cisco"}, files)
	require.NoError(t, err)
	assert.Equal(t, ReplaceStats{ManufacturersAdded: 2, DeviceTypesAdded: 2}, stats)

	before, err := db.GetDeviceTypeImportByFilename(ctx, files[0].Filename)
	require.NoError(t, err)

	stats, err = db.ReplaceImports(ctx, "devicetype_library", []string{"Arista"}, files[:1])
	require.NoError(t, err)
	assert.Equal(t, ReplaceStats{ManufacturersRemoved: 1, DeviceTypesRemoved: 1}, stats)

	after, err := db.GetDeviceTypeImportByFilename(ctx, files[0].Filename)
	require.NoError(t, err)
	assert.Equal(t, before.ID, after.ID, "ids survive a resync")

	n, err := db.CountImports(ctx, KindManufacturer)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestListImports(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	var files []DeviceTypeFile
	for _, m := range []string{"A1", "A2", "A3"} {
		files = append(files, DeviceTypeFile{Name: m, Filename: "device-types/Acme/" + m + ".yaml", Manufacturer: "Acme"})
	}
	files = append(files, DeviceTypeFile{Name: "Z1", Filename: "device-types/Zeta/Z1.yml", Manufacturer: "Zeta"})
	_, err := db.ReplaceImports(ctx, "lib", []string{"Acme", "Zeta"}, files)
	require.NoError(t, err)

	res, err := db.ListImports(ctx, KindDeviceType, ListOptions{Manufacturer: "Acme", PerPage: 2, Page: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, res.TotalCount)
	assert.Equal(t, 2, res.TotalPages)
	require.Len(t, res.Items, 1)
	assert.Equal(t, "A3", res.Items[0].Name)

	res, err = db.ListImports(ctx, KindDeviceType, ListOptions{Search: "zet"})
	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	assert.Equal(t, "Z1", res.Items[0].Name)
	assert.Equal(t, DefaultPerPage, res.PerPage)

	res, err = db.ListImports(ctx, KindManufacturer, ListOptions{Search: "acm"})
	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	assert.Empty(t, res.Items[0].Filename)

	mfrs, err := db.ListImportManufacturers(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Acme", "Zeta"}, mfrs)
}

func TestGetImportsByID(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	_, err := db.ReplaceImports(ctx, "lib", []string{"Juniper", "Cisco"}, nil)
	require.NoError(t, err)
	res, err := db.ListImports(ctx, KindManufacturer, ListOptions{})
	require.NoError(t, err)
	require.Len(t, res.Items, 2)

	got, err := db.GetImportsByID(ctx, KindManufacturer, []string{res.Items[1].ID, "1b4e28ba-2fa1-11d2-883f-0016d3cca427", res.Items[1].ID})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Juniper", got[0].Name)

	got, err = db.GetImportsByID(ctx, KindManufacturer, nil)
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = db.GetImport(ctx, KindManufacturer, "1b4e28ba-2fa1-11d2-883f-0016d3cca427")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = db.GetImport(ctx, ImportKind("bogus"), "x")
	assert.Error(t, err)
}

func TestGitRepository(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	_, err := db.GetGitRepository(ctx, "devicetype_library")
	assert.ErrorIs(t, err, ErrNotFound)

	repo := GitRepository{
		Slug:             "devicetype_library",
		Name:             "Devicetype-library",
		RemoteURL:        "https://GitHub.com/netbox-community/devicetype-library.git/",
		Branch:           "master",
		ProvidedContents: []string{"welcome_wizard.import_wizard"},
	}
	require.NoError(t, db.CreateGitRepository(ctx, repo))
	require.NoError(t, db.CreateGitRepository(ctx, repo))

	got, err := db.GetGitRepository(ctx, "devicetype_library")
	require.NoError(t, err)
	assert.Equal(t, "https://github.com/netbox-community/devicetype-library.git", got.RemoteURL)
	assert.Equal(t, []string{"welcome_wizard.import_wizard"}, got.ProvidedContents)
	assert.True(t, got.LastSyncedAt.IsZero())

	now := time.Now().Truncate(time.Second)
	require.NoError(t, db.MarkRepositorySynced(ctx, "devicetype_library", now))
	got, err = db.GetGitRepository(ctx, "devicetype_library")
	require.NoError(t, err)
	assert.True(t, now.Equal(got.LastSyncedAt))

	assert.ErrorIs(t, db.MarkRepositorySynced(ctx, "other", now), ErrNotFound)
}

func TestJobLifecycle(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	require.NoError(t, db.CreateJobResult(ctx, JobResult{ID: "j1", JobName: "Pull Git Repository", User: "admin", Kwargs: map[string]any{"repository": "devicetype_library"}}))
	require.NoError(t, db.CreateJobResult(ctx, JobResult{ID: "j2", JobName: "Import Manufacturer", User: "admin"}))

	active, err := db.HasActiveJob(ctx, "Pull Git Repository", "repository", "devicetype_library")
	require.NoError(t, err)
	assert.True(t, active)

	ids, err := db.ListPendingJobIDs(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"j1", "j2"}, ids)

	ok, err := db.ClaimJob(ctx, "j1")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = db.ClaimJob(ctx, "j1")
	require.NoError(t, err)
	assert.False(t, ok, "already running")

	require.NoError(t, db.FinishJob(ctx, "j1", errors.New("boom")))
	j, err := db.GetJobResult(ctx, "j1")
	require.NoError(t, err)
	assert.Equal(t, JobFailed, j.Status)
	assert.Equal(t, "boom", j.Error)
	assert.NotNil(t, j.StartedAt)
	assert.NotNil(t, j.CompletedAt)
	assert.Equal(t, "devicetype_library", j.Kwargs["repository"])

	active, err = db.HasActiveJob(ctx, "Pull Git Repository", "repository", "devicetype_library")
	require.NoError(t, err)
	assert.False(t, active)

	all, err := db.ListJobResults(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	_, err = db.GetJobResult(ctx, "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetStats(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	_, err := db.CreateInventoryItem(ctx, CategoryProviders, "Zayo")
	require.NoError(t, err)
	stats, err := db.GetStats(ctx)
	require.NoError(t, err)
	counts := map[string]int{}
	for _, s := range stats {
		counts[s.Table] = s.Count
	}
	assert.Equal(t, 1, counts["providers"])
	assert.Equal(t, 0, counts["job_results"])
}

func TestSchema(t *testing.T) {
	stmts, err := openTestDB(t).Schema(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, stmts)

	joined := strings.Join(stmts, "\n")
	for _, table := range []string{"status_entries", "device_type_imports", "job_results", "cluster_types"} {
		assert.Contains(t, joined, table)
	}
	assert.True(t, strings.HasPrefix(stmts[0], "CREATE TABLE"), "tables come before indexes")
	assert.True(t, strings.HasPrefix(stmts[len(stmts)-1], "CREATE INDEX"))
}

func TestSlugify(t *testing.T) {
	cases := map[string]string{
		"Cisco Systems":   "cisco-systems",
		"  HPE / Aruba  ": "hpe-aruba",
		"DCS-7050TX-64":   "dcs-7050tx-64",
		"snake_case":      "snake_case",
		"Müller & Söhne":  "muller-and-sohne",
		"":                "",
	}
	for in, want := range cases {
		assert.Equal(t, want, Slugify(in), in)
	}
}

func TestRemoteRootDomain(t *testing.T) {
	d, ok := RemoteRootDomain("https://github.com/netbox-community/devicetype-library.git")
	assert.True(t, ok)
	assert.Equal(t, "github.com", d)

	d, ok = RemoteRootDomain("codeload.github.com/org/repo")
	assert.True(t, ok)
	assert.Equal(t, "github.com", d)

	_, ok = RemoteRootDomain("http://localhost:8080/x")
	assert.False(t, ok)

	p, ok := RepositoryPath("https://github.com/netbox-community/devicetype-library.git")
	assert.True(t, ok)
	assert.Equal(t, "netbox-community/devicetype-library", p)
	_, ok = RepositoryPath("https://github.com/onlyowner")
	assert.False(t, ok)
}
