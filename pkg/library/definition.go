package library

import (
	"errors"
	"fmt"
	"path"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/netops-tools/welcome-wizard/pkg/storage"
)

const deviceTypesDir = "device-types"

type componentTemplate struct {
	Name string `yaml:"name"`
	Type string `yaml:"type"`
}

// DeviceTypeDefinition is one device-type YAML file of the library.
type DeviceTypeDefinition struct {
	Manufacturer string   `yaml:"manufacturer"`
	Model        string   `yaml:"model"`
	Slug         string   `yaml:"slug"`
	PartNumber   string   `yaml:"part_number"`
	UHeight      *float64 `yaml:"u_height"`
	IsFullDepth  *bool    `yaml:"is_full_depth"`
	Comments     string   `yaml:"comments"`

	Interfaces         []componentTemplate `yaml:"interfaces"`
	ConsolePorts       []componentTemplate `yaml:"console-ports"`
	ConsoleServerPorts []componentTemplate `yaml:"console-server-ports"`
	PowerPorts         []componentTemplate `yaml:"power-ports"`
	PowerOutlets       []componentTemplate `yaml:"power-outlets"`
	FrontPorts         []componentTemplate `yaml:"front-ports"`
	RearPorts          []componentTemplate `yaml:"rear-ports"`
	DeviceBays         []componentTemplate `yaml:"device-bays"`
	ModuleBays         []componentTemplate `yaml:"module-bays"`
}

// ParseDeviceType decodes a device-type definition. A missing u_height means 1U,
// a missing is_full_depth means full depth.
func ParseDeviceType(data []byte) (*DeviceTypeDefinition, error) {
	var def DeviceTypeDefinition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("decode device type: %w", err)
	}
	def.Model = strings.TrimSpace(def.Model)
	def.Manufacturer = strings.TrimSpace(def.Manufacturer)
	if def.Model == "" {
		return nil, errors.New("decode device type: model is required")
	}
	if def.UHeight != nil && *def.UHeight < 0 {
		return nil, fmt.Errorf("decode device type %s: u_height must not be negative", def.Model)
	}
	return &def, nil
}

// DeviceType converts the definition into an inventory row for manufacturerID.
func (d *DeviceTypeDefinition) DeviceType(manufacturerID string) storage.DeviceType {
	dt := storage.DeviceType{
		ManufacturerID: manufacturerID,
		Model:          d.Model,
		Slug:           d.Slug,
		PartNumber:     d.PartNumber,
		UHeight:        1,
		IsFullDepth:    true,
		Comments:       d.Comments,
	}
	if dt.Slug == "" {
		dt.Slug = storage.Slugify(d.Model)
	}
	if d.UHeight != nil {
		dt.UHeight = *d.UHeight
	}
	if d.IsFullDepth != nil {
		dt.IsFullDepth = *d.IsFullDepth
	}
	return dt
}

// Components flattens every component template section.
func (d *DeviceTypeDefinition) Components() []storage.Component {
	sections := []struct {
		kind  string
		items []componentTemplate
	}{
		{"interface", d.Interfaces},
		{"console-port", d.ConsolePorts},
		{"console-server-port", d.ConsoleServerPorts},
		{"power-port", d.PowerPorts},
		{"power-outlet", d.PowerOutlets},
		{"front-port", d.FrontPorts},
		{"rear-port", d.RearPorts},
		{"device-bay", d.DeviceBays},
		{"module-bay", d.ModuleBays},
	}
	var out []storage.Component
	for _, s := range sections {
		for _, c := range s.items {
			if c.Name == "" {
				continue
			}
			out = append(out, storage.Component{Kind: s.kind, Name: c.Name, Type: c.Type})
		}
	}
	return out
}

// Discover picks device-type files out of a repository listing. Only files
// directly under device-types/<Manufacturer>/ with a .yaml or .yml extension
// count; a manufacturer is listed when it has at least one such file.
func Discover(paths []string) ([]string, []storage.DeviceTypeFile) {
	mfrSet := map[string]bool{}
	var files []storage.DeviceTypeFile
	for _, p := range paths {
		parts := strings.Split(p, "/")
		if len(parts) != 3 || parts[0] != deviceTypesDir || parts[1] == "" {
			continue
		}
		ext := strings.ToLower(path.Ext(parts[2]))
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		name := strings.TrimSuffix(parts[2], path.Ext(parts[2]))
		if name == "" {
			continue
		}
		mfrSet[parts[1]] = true
		files = append(files, storage.DeviceTypeFile{Name: name, Filename: p, Manufacturer: parts[1]})
	}

	manufacturers := make([]string, 0, len(mfrSet))
	for m := range mfrSet {
		manufacturers = append(manufacturers, m)
	}
	sort.Strings(manufacturers)
	sort.Slice(files, func(i, j int) bool { return files[i].Filename < files[j].Filename })
	return manufacturers, files
}
