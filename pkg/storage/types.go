package storage

import "time"

// Category names one of the foundational inventory tables tracked by the dashboard.
type Category string

const (
	CategoryLocations     Category = "locations"
	CategoryManufacturers Category = "manufacturers"
	CategoryDeviceTypes   Category = "device_types"
	CategoryCircuitTypes  Category = "circuit_types"
	CategoryProviders     Category = "providers"
	CategoryRIRs          Category = "rirs"
	CategoryClusterTypes  Category = "cluster_types"
)

// Categories lists every inventory table in schema order.
var Categories = []Category{
	CategoryLocations,
	CategoryManufacturers,
	CategoryDeviceTypes,
	CategoryCircuitTypes,
	CategoryProviders,
	CategoryRIRs,
	CategoryClusterTypes,
}

func (c Category) valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// StatusEntry is one row of the dashboard checklist.
type StatusEntry struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Completed   bool   `json:"completed"`
	Ignored     bool   `json:"ignored"`
	TargetModel string `json:"target_model"`
	ListLink    string `json:"list_link"`
	AddLink     string `json:"add_link"`
	WizardLink  string `json:"wizard_link"`
}

// ImportKind selects which import candidate table a query runs against.
type ImportKind string

const (
	KindManufacturer ImportKind = "manufacturer"
	KindDeviceType   ImportKind = "devicetype"
)

// ImportCandidate is a discovered row that can be onboarded into the inventory.
// Filename and Manufacturer are only set for device types.
type ImportCandidate struct {
	Kind         ImportKind `json:"kind"`
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	Filename     string     `json:"filename,omitempty"`
	Manufacturer string     `json:"manufacturer,omitempty"`
	Repository   string     `json:"repository"`
}

// DeviceTypeFile is a device type definition found while walking a repository.
type DeviceTypeFile struct {
	Name         string
	Filename     string
	Manufacturer string
}

// ListOptions controls filtering and pagination of import candidates.
type ListOptions struct {
	Search       string
	Manufacturer string
	Page         int
	PerPage      int
}

// ImportListResult is one page of import candidates.
type ImportListResult struct {
	Items      []ImportCandidate
	TotalCount int
	Page       int
	PerPage    int
	TotalPages int
}

// ReplaceStats summarizes a ReplaceImports run.
type ReplaceStats struct {
	ManufacturersAdded   int
	ManufacturersRemoved int
	DeviceTypesAdded     int
	DeviceTypesRemoved   int
}

// DeviceType is a row of the device_types inventory table.
type DeviceType struct {
	ID             string
	ManufacturerID string
	Model          string
	Slug           string
	PartNumber     string
	UHeight        float64
	IsFullDepth    bool
	Comments       string
}

// Component is a component template attached to a device type.
type Component struct {
	Kind string
	Name string
	Type string
}

// GitRepository describes an external repository that provides import data.
type GitRepository struct {
	Slug             string
	Name             string
	RemoteURL        string
	Branch           string
	ProvidedContents []string
	LastSyncedAt     time.Time
}

// JobStatus is the lifecycle state of a JobResult.
type JobStatus string

const (
	JobPending   JobStatus = "pending"
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
)

// JobResult records one enqueued background job and its outcome.
type JobResult struct {
	ID          string         `json:"id"`
	JobName     string         `json:"job_name"`
	User        string         `json:"user"`
	Kwargs      map[string]any `json:"kwargs"`
	Status      JobStatus      `json:"status"`
	Error       string         `json:"error,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	StartedAt   *time.Time     `json:"started_at,omitempty"`
	CompletedAt *time.Time     `json:"completed_at,omitempty"`
}

// TableStats is a row count for one table, used by `db stats`.
type TableStats struct {
	Table string
	Count int
}
