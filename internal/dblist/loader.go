package dblist

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"

	"github.com/agentic-research/manifestdb/api"
	"github.com/agentic-research/manifestdb/internal/manifest"
	_ "modernc.org/sqlite"
)

// bulkLoader writes parsed manifest entries inside one transaction.
type bulkLoader struct {
	ctx    context.Context
	kind   *api.Kind
	logger *slog.Logger

	stmtCategory *sql.Stmt
	stmtListing  *sql.Stmt
	stmtDetail   *sql.Stmt

	categoryID  int64
	hasCategory bool
	listings    int
	categories  int
}

func newBulkLoader(ctx context.Context, tx *sql.Tx, k *api.Kind, q queries, logger *slog.Logger) (*bulkLoader, error) {
	l := &bulkLoader{ctx: ctx, kind: k, logger: logger}
	var err error
	if l.stmtCategory, err = tx.PrepareContext(ctx, q.insertCategory); err != nil {
		return nil, fmt.Errorf("prepare category insert: %w", err)
	}
	if l.stmtListing, err = tx.PrepareContext(ctx, q.insertListing); err != nil {
		l.close()
		return nil, fmt.Errorf("prepare listing insert: %w", err)
	}
	if l.stmtDetail, err = tx.PrepareContext(ctx, q.insertDetail); err != nil {
		l.close()
		return nil, fmt.Errorf("prepare %s insert: %w", k.Table, err)
	}
	return l, nil
}

func (l *bulkLoader) close() {
	for _, st := range []*sql.Stmt{l.stmtCategory, l.stmtListing, l.stmtDetail} {
		if st != nil {
			_ = st.Close() // closed with the tx anyway
		}
	}
}

// add stores one entry. Any error aborts the whole load.
func (l *bulkLoader) add(e manifest.Entry) error {
	if err := l.ctx.Err(); err != nil {
		return err
	}
	if e.Type == manifest.EntryCategory {
		return l.addCategory(e.Name)
	}

	if !l.hasCategory {
		// Manifests without headers get one unnamed category.
		if err := l.addCategory(""); err != nil {
			return err
		}
	}

	res, err := l.stmtListing.ExecContext(l.ctx, l.categoryID, e.Name, e.Description)
	if err != nil {
		return fmt.Errorf("insert listing %q (line %d): %w", e.Name, e.Line, err)
	}
	listingID, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("get listing id for %q: %w", e.Name, err)
	}

	args := make([]any, 0, len(e.Values)+1)
	args = append(args, listingID)
	for _, v := range e.Values {
		args = append(args, v)
	}
	if _, err := l.stmtDetail.ExecContext(l.ctx, args...); err != nil {
		return fmt.Errorf("insert %s row for %q (line %d): %w", l.kind.Table, e.Name, e.Line, err)
	}

	l.listings++
	l.logger.Debug("loaded listing", "kind", l.kind.Name, "name", e.Name, "id", listingID)
	return nil
}

func (l *bulkLoader) addCategory(name string) error {
	res, err := l.stmtCategory.ExecContext(l.ctx, name)
	if err != nil {
		return fmt.Errorf("insert category %q: %w", name, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("get category id: %w", err)
	}
	l.categoryID = id
	l.hasCategory = true
	l.categories++
	return nil
}

// loadResult summarises a successful load.
type loadResult struct {
	stats      manifest.Stats
	listings   int
	categories int
}

// load creates the schema in the empty store at dbPath and fills it from r,
// the contents of the manifest at source. Failures are *IngestionError.
func load(ctx context.Context, dbPath, source string, k *api.Kind, r io.Reader, logger *slog.Logger) (loadResult, error) {
	fail := func(op string, err error) (loadResult, error) {
		return loadResult{}, &IngestionError{Op: op, Path: source, Err: err}
	}

	dsn, err := storeDSN(dbPath, "_pragma=foreign_keys(1)&_pragma=synchronous(OFF)")
	if err != nil {
		return fail("open store", err)
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fail("open store", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Warn("failed to close store writer", "store", dbPath, "error", err)
		}
	}()
	// One connection so pragmas and the transaction share a session.
	db.SetMaxOpenConns(1)

	if err := createSchema(ctx, db, k); err != nil {
		return fail("create schema", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fail("begin transaction", err)
	}
	defer func() { _ = tx.Rollback() }() // no-op after Commit

	q := buildQueries(k)
	loader, err := newBulkLoader(ctx, tx, k, q, logger)
	if err != nil {
		return fail("prepare statements", err)
	}
	defer loader.close()

	parser := manifest.NewParser(k, logger)
	stats, err := parser.Scan(r, loader.add)
	if err != nil {
		return fail("load manifest", err)
	}

	loader.close()
	if err := tx.Commit(); err != nil {
		return fail("commit", err)
	}
	return loadResult{stats: stats, listings: loader.listings, categories: loader.categories}, nil
}
