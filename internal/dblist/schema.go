package dblist

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/agentic-research/manifestdb/api"
)

const baseSchema = `
CREATE TABLE category (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL
);

CREATE TABLE listing (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	category_id INTEGER NOT NULL REFERENCES category(id),
	name TEXT NOT NULL CHECK (name <> ''),
	description TEXT NOT NULL DEFAULT ''
);

CREATE INDEX idx_listing_category ON listing(category_id, name);
`

// detailSchema returns the DDL for the kind's detail table.
// Column names come from a validated api.Kind, so interpolation is safe.
func detailSchema(k *api.Kind) string {
	var b strings.Builder
	fmt.Fprintf(&b, "CREATE TABLE %s (\n", k.Table)
	b.WriteString("\tlisting_id INTEGER NOT NULL UNIQUE REFERENCES listing(id)")
	for _, f := range k.Fields {
		fmt.Fprintf(&b, ",\n\t%s TEXT NOT NULL", f.ColumnName())
	}
	b.WriteString("\n);\n")
	return b.String()
}

// createSchema creates the category, listing and detail tables in an empty store.
func createSchema(ctx context.Context, db *sql.DB, k *api.Kind) error {
	if _, err := db.ExecContext(ctx, baseSchema); err != nil {
		return fmt.Errorf("create base tables: %w", err)
	}
	if _, err := db.ExecContext(ctx, detailSchema(k)); err != nil {
		return fmt.Errorf("create %s table: %w", k.Table, err)
	}
	return nil
}

// queries holds the SQL generated once per kind.
type queries struct {
	insertCategory string
	insertListing  string
	insertDetail   string
	listings       string
	detail         string
	records        string
}

func buildQueries(k *api.Kind) queries {
	cols := make([]string, len(k.Fields))
	dcols := make([]string, len(k.Fields))
	for i, f := range k.Fields {
		cols[i] = f.ColumnName()
		dcols[i] = "d." + f.ColumnName()
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(cols)+1), ", ")
	selectRecord := fmt.Sprintf(
		"SELECT l.id, l.category_id, l.name, l.description, %s FROM listing l JOIN %s d ON d.listing_id = l.id",
		strings.Join(dcols, ", "), k.Table)

	return queries{
		insertCategory: "INSERT INTO category (name) VALUES (?)",
		insertListing:  "INSERT INTO listing (category_id, name, description) VALUES (?, ?, ?)",
		insertDetail: fmt.Sprintf("INSERT INTO %s (listing_id, %s) VALUES (%s)",
			k.Table, strings.Join(cols, ", "), placeholders),
		listings: "SELECT id, category_id, name, description FROM listing WHERE category_id = ? ORDER BY name, id",
		detail:   selectRecord + " WHERE l.id = ?",
		records:  selectRecord + " WHERE l.category_id = ? ORDER BY l.name, l.id",
	}
}

// categoriesQuery returns the category listing SQL and its arguments.
// Only categories owning at least one eligible listing are returned.
func categoriesQuery(k *api.Kind, allowed *ClassSet) (string, []any) {
	if k.ClassField == "" || allowed == nil {
		return `SELECT c.id, c.name FROM category c
WHERE EXISTS (SELECT 1 FROM listing l WHERE l.category_id = c.id)
ORDER BY c.name, c.id`, nil
	}

	col := k.Fields[k.FieldIndex(k.ClassField)].ColumnName()
	names := allowed.names()
	args := make([]any, len(names))
	for i, n := range names {
		args[i] = n
	}
	in := "NULL"
	if len(names) > 0 {
		in = strings.TrimSuffix(strings.Repeat("?, ", len(names)), ", ")
	}
	return fmt.Sprintf(`SELECT c.id, c.name FROM category c
WHERE EXISTS (
	SELECT 1 FROM listing l JOIN %s d ON d.listing_id = l.id
	WHERE l.category_id = c.id AND UPPER(TRIM(d.%s)) IN (%s)
)
ORDER BY c.name, c.id`, k.Table, col, in), args
}
