package api

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testKind() *Kind {
	return &Kind{
		Name:  "motif",
		Table: "motif_db",
		Fields: []Field{
			{Name: "alphabet", External: true},
			{Name: "file_name", Column: "file"},
		},
		ClassField: "alphabet",
	}
}

func TestKind_FieldCount(t *testing.T) {
	assert.Equal(t, 4, testKind().FieldCount())
}

func TestKind_ColumnName(t *testing.T) {
	k := testKind()
	assert.Equal(t, "alphabet", k.Fields[0].ColumnName())
	assert.Equal(t, "file", k.Fields[1].ColumnName())
}

func TestKind_Validate(t *testing.T) {
	require.NoError(t, testKind().Validate())

	tests := []struct {
		name   string
		mutate func(k *Kind)
	}{
		{"no name", func(k *Kind) { k.Name = "" }},
		{"bad table", func(k *Kind) { k.Table = "motif db" }},
		{"reserved table", func(k *Kind) { k.Table = "listing" }},
		{"no fields", func(k *Kind) { k.Fields = nil; k.ClassField = "" }},
		{"bad column", func(k *Kind) { k.Fields[1].Column = "file;drop" }},
		{"reserved column", func(k *Kind) { k.Fields[1].Column = "listing_id" }},
		{"duplicate column", func(k *Kind) { k.Fields[1].Column = "alphabet" }},
		{"field shadows name", func(k *Kind) { k.Fields[1].Name = "name" }},
		{"unknown class field", func(k *Kind) { k.ClassField = "strand" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			k := testKind()
			tt.mutate(k)
			assert.Error(t, k.Validate())
		})
	}
}

func TestKind_JSON(t *testing.T) {
	raw := `{
  "name": "motif",
  "table": "motif_db",
  "fields": [{"name": "alphabet", "external": true}, {"name": "file_name", "column": "file"}],
  "class_field": "alphabet"
}`
	var k Kind
	require.NoError(t, json.Unmarshal([]byte(raw), &k))
	assert.Equal(t, testKind(), &k)
}
