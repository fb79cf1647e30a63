package resource

import (
	"fmt"
	"reflect"

	"github.com/jackc/pgx/v5/pgtype"
)

// Link is one relation descriptor attached to a serialized row.
type Link struct {
	Rel string `json:"rel"`
	URI string `json:"uri"`
}

// Row is one in-memory instance of a resource: the current values of the
// declared table columns. Values outside the declared columns are never
// stored, so nothing but column data can leak into the serialized form.
type Row struct {
	res    *Resource
	values map[string]any
}

// NewRow returns an empty row for the resource. The resource must already
// be bound to reflected metadata.
func (r *Resource) NewRow() (*Row, error) {
	if r.table == nil {
		return nil, ErrNotBound
	}
	return &Row{res: r, values: make(map[string]any, len(r.table.Columns))}, nil
}

// Resource returns the definition the row belongs to.
func (row *Row) Resource() *Resource {
	return row.res
}

// Get returns the current value of a column, nil when unset or when the
// name is not a declared column.
func (row *Row) Get(column string) any {
	return row.values[column]
}

// Set assigns a column value. Names outside the declared columns are
// ignored. No validation happens here; a type mismatch surfaces from the
// database when the row is written.
func (row *Row) Set(column string, value any) {
	for _, col := range row.res.table.Columns {
		if col.Name == column {
			row.values[column] = value
			return
		}
	}
}

// ResourceURI returns the canonical relative path of the row:
// /<endpoint>/<primary-key value>. The key segment is empty when the row
// has not been assigned a key yet, or when the table has no usable single
// primary key.
func (row *Row) ResourceURI() string {
	pk, err := row.res.PrimaryKey()
	if err != nil {
		return "/" + row.res.EndpointName() + "/"
	}
	return "/" + row.res.EndpointName() + "/" + stringify(row.values[pk])
}

// Links returns the relation descriptors for the row, always starting with
// the self link. Callers may append related-resource links.
func (row *Row) Links() []Link {
	return []Link{{Rel: "self", URI: row.ResourceURI()}}
}

// AsMap converts the row into a plain mapping for response encoding. The
// keys are exactly the declared column names plus "links". Unset columns
// map to nil. Arbitrary-precision numerics are rendered as their exact
// string representation so no precision is lost to float encoding.
func (row *Row) AsMap() map[string]any {
	out := make(map[string]any, len(row.res.table.Columns)+1)
	for _, col := range row.res.table.Columns {
		v, ok := row.values[col.Name]
		if !ok {
			out[col.Name] = nil
			continue
		}
		if n, isNumeric := v.(pgtype.Numeric); isNumeric {
			out[col.Name] = numericString(n)
			continue
		}
		out[col.Name] = v
	}
	out["links"] = row.Links()
	return out
}

// ApplyPartial applies a partial update from the input mapping. A declared
// column is updated only when the input holds a truthy value under its key;
// absent keys and falsy values (null, false, zero, empty string, empty
// collection) leave the current value untouched. A falsy-but-meaningful
// value such as a quantity of zero therefore cannot be set through this
// path, only through Replace.
func (row *Row) ApplyPartial(in map[string]any) {
	for _, col := range row.res.table.Columns {
		if v, ok := in[col.Name]; ok && truthy(v) {
			row.values[col.Name] = v
		}
	}
}

// Replace applies a full update: every declared column is first cleared to
// nil, then ApplyPartial runs with the same input. Columns absent from the
// input, or present with a falsy value, end up nil.
func (row *Row) Replace(in map[string]any) {
	for _, col := range row.res.table.Columns {
		row.values[col.Name] = nil
	}
	row.ApplyPartial(in)
}

// truthy mirrors the update semantics above: nil, false, numeric zero,
// empty strings and empty collections all count as unset.
func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	case []any:
		return len(t) > 0
	case map[string]any:
		return len(t) > 0
	case pgtype.Numeric:
		return t.Valid && t.Int != nil && t.Int.Sign() != 0
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return !rv.IsZero()
	case reflect.Slice, reflect.Map, reflect.Array:
		return rv.Len() > 0
	}
	return true
}

// numericString renders a pgtype.Numeric in its exact text form, keeping
// the declared scale ("12.50" stays "12.50").
func numericString(n pgtype.Numeric) any {
	if !n.Valid {
		return nil
	}
	v, err := n.Value()
	if err != nil {
		return nil
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case pgtype.Numeric:
		if s, ok := numericString(t).(string); ok {
			return s
		}
		return ""
	default:
		return fmt.Sprint(v)
	}
}
