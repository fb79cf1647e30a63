// Package registry binds endpoint names to resource definitions. The
// registry is owned by the server that serves it: it is populated during
// startup, bound to reflected metadata once, and only read afterwards.
package registry

import (
	"fmt"

	"github.com/restmap/restmap/pkg/resource"
	"github.com/restmap/restmap/pkg/schema"
)

// Registry maps endpoint names to resources. Not safe for concurrent
// mutation; registration happens single-threaded before serving traffic.
type Registry struct {
	entries map[string]*resource.Resource
	order   []string
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{entries: make(map[string]*resource.Resource)}
}

// Register records each resource under its endpoint name. Registering a
// second resource under an endpoint name already in use silently replaces
// the earlier one; no duplicate detection happens.
func (reg *Registry) Register(resources ...*resource.Resource) {
	for _, res := range resources {
		name := res.EndpointName()
		if _, exists := reg.entries[name]; !exists {
			reg.order = append(reg.order, name)
		}
		reg.entries[name] = res
	}
}

// Lookup returns the resource registered under the endpoint name.
func (reg *Registry) Lookup(endpoint string) (*resource.Resource, bool) {
	res, ok := reg.entries[endpoint]
	return res, ok
}

// Resources returns all registered resources in first-registration order.
func (reg *Registry) Resources() []*resource.Resource {
	out := make([]*resource.Resource, 0, len(reg.order))
	for _, name := range reg.order {
		out = append(out, reg.entries[name])
	}
	return out
}

// Len returns the number of registered endpoints.
func (reg *Registry) Len() int {
	return len(reg.entries)
}

// Reflect binds every registered resource to its reflected table metadata
// from the catalog. A resource whose table is missing from the database is
// an error; reflection failures from the catalog itself propagate from
// Catalog.Init and are not handled here.
func (reg *Registry) Reflect(catalog *schema.Catalog) error {
	for _, name := range reg.order {
		res := reg.entries[name]
		table, ok := catalog.Lookup(res.SchemaName(), res.TableName)
		if !ok {
			return fmt.Errorf("registry: table %s.%s for endpoint %q not found in database",
				res.SchemaName(), res.TableName, name)
		}
		res.Bind(table)
	}
	return nil
}
