package server

import (
	"strings"
)

const pluginPrefix = "/plugins/welcome_wizard"

// pluginRoutes maps the plugin's own route names to paths.
var pluginRoutes = map[string]string{
	"plugins:welcome_wizard:dashboard":           pluginPrefix + "/dashboard/",
	"plugins:welcome_wizard:manufacturers":       pluginPrefix + "/manufacturers/",
	"plugins:welcome_wizard:manufacturer_import": pluginPrefix + "/manufacturers/",
	"plugins:welcome_wizard:devicetypes":         pluginPrefix + "/devicetypes/",
	"plugins:welcome_wizard:devicetype_import":   pluginPrefix + "/devicetypes/",
}

// inventoryPaths maps "<app>:<model>" to the collection path in the inventory UI.
var inventoryPaths = map[string]string{
	"dcim:location":              "/dcim/locations/",
	"dcim:manufacturer":          "/dcim/manufacturers/",
	"dcim:devicetype":            "/dcim/device-types/",
	"circuits:circuittype":       "/circuits/circuit-types/",
	"circuits:provider":          "/circuits/providers/",
	"ipam:rir":                   "/ipam/rirs/",
	"virtualization:clustertype": "/virtualization/cluster-types/",
}

// resolveRoute turns a route name into a URL. Inventory routes need the
// inventory base URL; without it they do not resolve.
func (s *Server) resolveRoute(name string) (string, bool) {
	if p, ok := pluginRoutes[name]; ok {
		return p, true
	}
	app, rest, ok := strings.Cut(name, ":")
	if !ok {
		return "", false
	}
	idx := strings.LastIndex(rest, "_")
	if idx <= 0 {
		return "", false
	}
	model, action := rest[:idx], rest[idx+1:]
	base, ok := inventoryPaths[app+":"+model]
	if !ok || s.cfg.InventoryURL == "" {
		return "", false
	}
	root := strings.TrimRight(s.cfg.InventoryURL, "/")
	switch action {
	case "list":
		return root + base, true
	case "add":
		return root + base + "add/", true
	}
	return "", false
}

// mustRoute resolves one of the plugin's own routes.
func mustRoute(name string) string {
	p, ok := pluginRoutes[name]
	if !ok {
		panic("unknown plugin route " + name)
	}
	return p
}
