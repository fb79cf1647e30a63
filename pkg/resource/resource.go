// Package resource maps a reflected database table to a REST-addressable
// resource: endpoint naming, primary-key discovery, and conversion between
// rows and the plain key/value shape used in request and response bodies.
package resource

import (
	"errors"
	"net/http"
	"strings"

	"github.com/restmap/restmap/pkg/schema"
)

var (
	// ErrNotBound is returned when column metadata is required before the
	// resource has been bound to a reflected table.
	ErrNotBound = errors.New("resource: not bound to reflected table metadata")

	// ErrNoPrimaryKey is returned for tables without a primary key.
	ErrNoPrimaryKey = errors.New("resource: table has no primary key column")

	// ErrCompositeKey is returned for tables with a multi-column primary
	// key. Composite keys are not supported.
	ErrCompositeKey = errors.New("resource: composite primary keys are not supported")
)

// DefaultMethods is the full set of HTTP methods a resource serves unless
// narrowed in its definition.
var DefaultMethods = []string{
	http.MethodGet,
	http.MethodPost,
	http.MethodPatch,
	http.MethodPut,
	http.MethodDelete,
}

// Resource binds one database table (or view) to a REST endpoint.
//
// TableName is required. Endpoint, Schema and Methods are optional: the
// endpoint defaults to the lowercased table name with an "s" suffix, the
// schema to public, and the methods to DefaultMethods.
type Resource struct {
	TableName string
	Schema    string
	Endpoint  string
	Methods   []string

	table *schema.Table
}

// EndpointName returns the URL path segment for the resource collection:
// the explicit Endpoint override when set, otherwise the table name
// lowercased with a trailing "s". The suffix is a plain append, not
// language-aware pluralization ("person" becomes "persons").
func (r *Resource) EndpointName() string {
	if r.Endpoint != "" {
		return r.Endpoint
	}
	return strings.ToLower(r.TableName) + "s"
}

// SchemaName returns the database schema the table lives in.
func (r *Resource) SchemaName() string {
	if r.Schema != "" {
		return r.Schema
	}
	return "public"
}

// Allows reports whether the resource serves the given HTTP method.
func (r *Resource) Allows(method string) bool {
	methods := r.Methods
	if len(methods) == 0 {
		methods = DefaultMethods
	}
	for _, m := range methods {
		if strings.EqualFold(m, method) {
			return true
		}
	}
	return false
}

// Bind attaches reflected table metadata to the resource. Must be called
// before Columns, PrimaryKey, or any Row operation.
func (r *Resource) Bind(t schema.Table) {
	r.table = &t
}

// Bound reports whether reflected metadata has been attached.
func (r *Resource) Bound() bool {
	return r.table != nil
}

// Table returns the bound metadata.
func (r *Resource) Table() (schema.Table, error) {
	if r.table == nil {
		return schema.Table{}, ErrNotBound
	}
	return *r.table, nil
}

// Columns returns the declared columns in schema order.
func (r *Resource) Columns() ([]schema.Column, error) {
	if r.table == nil {
		return nil, ErrNotBound
	}
	return r.table.Columns, nil
}

// PrimaryKey returns the name of the table's single primary-key column.
// Tables with no primary key or a composite key are rejected explicitly
// rather than silently picking a column.
func (r *Resource) PrimaryKey() (string, error) {
	if r.table == nil {
		return "", ErrNotBound
	}
	switch len(r.table.PrimaryKeys) {
	case 0:
		return "", ErrNoPrimaryKey
	case 1:
		return r.table.PrimaryKeys[0], nil
	default:
		return "", ErrCompositeKey
	}
}
