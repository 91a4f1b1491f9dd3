package dblist

import (
	"strings"

	"github.com/agentic-research/manifestdb/api"
)

// Category is a named group of listings. The name is empty for the
// implicit category of a manifest without headers.
type Category struct {
	ID   int64
	Name string
}

// Listing is one dataset entry.
type Listing struct {
	ID          int64
	CategoryID  int64
	Name        string
	Description string
}

// Record is a listing joined with its detail row. Values follow the
// kind's field order. Records are read-only once returned.
type Record struct {
	Listing
	kind   *api.Kind
	values []string
}

// Kind returns the dataset kind the record belongs to.
func (r *Record) Kind() *api.Kind { return r.kind }

// Values returns a copy of the attribute values in field order.
func (r *Record) Values() []string {
	out := make([]string, len(r.values))
	copy(out, r.values)
	return out
}

// Get returns the named attribute. "name" and "description" resolve to the listing columns.
func (r *Record) Get(field string) (string, bool) {
	switch field {
	case "name":
		return r.Name, true
	case "description":
		return r.Description, true
	}
	i := r.kind.FieldIndex(field)
	if i < 0 {
		return "", false
	}
	return r.values[i], true
}

// Value returns the named attribute or "" if the kind has no such field.
func (r *Record) Value(field string) string {
	v, _ := r.Get(field)
	return v
}

// ExternalView projects the record onto name, description and the
// fields the kind marks External.
func (r *Record) ExternalView() View {
	return r.view(true)
}

// FullView includes every attribute.
func (r *Record) FullView() View {
	return r.view(false)
}

func (r *Record) view(externalOnly bool) View {
	v := View{{Key: "name", Value: r.Name}, {Key: "description", Value: r.Description}}
	for i, f := range r.kind.Fields {
		if externalOnly && !f.External {
			continue
		}
		v = append(v, ViewField{Key: f.Name, Value: r.values[i]})
	}
	return v
}

// ViewField is one key/value pair of a View.
type ViewField struct {
	Key   string
	Value string
}

// View is an ordered projection of a record.
type View []ViewField

// Get returns the value for key.
func (v View) Get(key string) (string, bool) {
	for _, f := range v {
		if f.Key == key {
			return f.Value, true
		}
	}
	return "", false
}

// Keys returns the keys in order.
func (v View) Keys() []string {
	out := make([]string, len(v))
	for i, f := range v {
		out[i] = f.Key
	}
	return out
}

// Map returns the view as a generic map, e.g. for JSON encoding or JSONPath queries.
func (v View) Map() map[string]any {
	m := make(map[string]any, len(v))
	for _, f := range v {
		m[f.Key] = f.Value
	}
	return m
}

// SplitList splits a comma-joined multi-value attribute. Empty input yields nil.
func SplitList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
