package api

import (
	"fmt"
	"regexp"
)

// Kind describes one dataset kind: the detail table it compiles into
// and the positional attribute fields that follow name and description
// on every manifest line.
type Kind struct {
	// Name of the kind (e.g. "cismapper"). Used for temp file prefixes and logs.
	Name string `json:"name"`
	// Table is the detail relation holding the attribute columns.
	Table string `json:"table"`
	// Fields in manifest order, after name and description.
	Fields []Field `json:"fields"`
	// ClassField names the field holding the compatibility class, if any.
	ClassField string `json:"class_field,omitempty"`
	// CategoryHeaders enables single-field lines as category headers.
	CategoryHeaders bool `json:"category_headers,omitempty"`
}

// Field is one attribute column of a detail table.
type Field struct {
	// Name of the attribute as exposed to callers (e.g. "genome_release").
	Name string `json:"name"`
	// Column in the detail table. Defaults to Name.
	Column string `json:"column,omitempty"`
	// External marks fields included in the restricted external view.
	External bool `json:"external,omitempty"`
}

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// reserved columns of the detail table.
var reserved = map[string]bool{"listing_id": true, "id": true}

// ColumnName returns the table column for the field.
func (f Field) ColumnName() string {
	if f.Column != "" {
		return f.Column
	}
	return f.Name
}

// FieldCount is the number of tab-separated values a listing line needs.
func (k *Kind) FieldCount() int {
	return 2 + len(k.Fields)
}

// FieldIndex returns the position of the named field within Fields, or -1.
func (k *Kind) FieldIndex(name string) int {
	for i, f := range k.Fields {
		if f.Name == name {
			return i
		}
	}
	return -1
}

// Validate checks that the kind can be turned into a schema.
func (k *Kind) Validate() error {
	if k.Name == "" {
		return fmt.Errorf("kind has no name")
	}
	if !identRe.MatchString(k.Table) {
		return fmt.Errorf("kind %s: invalid table name %q", k.Name, k.Table)
	}
	if k.Table == "category" || k.Table == "listing" {
		return fmt.Errorf("kind %s: table name %q is reserved", k.Name, k.Table)
	}
	if len(k.Fields) == 0 {
		return fmt.Errorf("kind %s: no fields", k.Name)
	}
	seen := make(map[string]bool, len(k.Fields))
	names := make(map[string]bool, len(k.Fields))
	for _, f := range k.Fields {
		col := f.ColumnName()
		if !identRe.MatchString(col) {
			return fmt.Errorf("kind %s: invalid column %q", k.Name, col)
		}
		if reserved[col] {
			return fmt.Errorf("kind %s: column %q is reserved", k.Name, col)
		}
		if seen[col] {
			return fmt.Errorf("kind %s: duplicate column %q", k.Name, col)
		}
		if f.Name == "name" || f.Name == "description" || names[f.Name] {
			return fmt.Errorf("kind %s: duplicate field %q", k.Name, f.Name)
		}
		seen[col] = true
		names[f.Name] = true
	}
	if k.ClassField != "" && k.FieldIndex(k.ClassField) < 0 {
		return fmt.Errorf("kind %s: class field %q is not a field", k.Name, k.ClassField)
	}
	return nil
}
