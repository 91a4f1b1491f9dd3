// Package dblist compiles a dataset manifest into a temporary SQLite
// store and serves category, listing and detail queries from it.
//
// A Store is built once by Compile and is read-only afterwards. Each query
// takes its own connection from a bounded pool and releases it before
// returning, so a Store can be shared freely between goroutines.
package dblist

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/agentic-research/manifestdb/api"
	"github.com/agentic-research/manifestdb/internal/manifest"
	billy "github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	_ "modernc.org/sqlite"
)

// DefaultMaxReaders is the read-pool size used when none is configured.
const DefaultMaxReaders = 4

// SourceVersion fingerprints the manifest a store was compiled from.
// External code compares it with the manifest on disk to decide whether
// to compile a fresh store; the store itself never re-checks it.
type SourceVersion struct {
	Path    string
	ModTime time.Time
	Size    int64
}

// Matches reports whether info describes the same manifest contents.
func (v SourceVersion) Matches(info fs.FileInfo) bool {
	return info.ModTime().Equal(v.ModTime) && info.Size() == v.Size
}

// Summary describes what a compile produced.
type Summary struct {
	Parse      manifest.Stats
	Listings   int
	Categories int
}

// Store is a compiled manifest.
type Store struct {
	kind    *api.Kind
	db      *sql.DB
	path    string
	source  SourceVersion
	summary Summary
	q       queries
	logger  *slog.Logger

	closeOnce sync.Once
}

type options struct {
	fs         billy.Filesystem
	tempDir    string
	maxReaders int
	logger     *slog.Logger
}

// Option configures Compile.
type Option func(*options)

// WithFilesystem reads the manifest from fsys instead of the local disk.
// The manifest path is then interpreted relative to fsys.
func WithFilesystem(fsys billy.Filesystem) Option {
	return func(o *options) { o.fs = fsys }
}

// WithTempDir places the compiled store in dir. Empty means os.TempDir().
func WithTempDir(dir string) Option {
	return func(o *options) { o.tempDir = dir }
}

// WithMaxReaders bounds the number of concurrent read connections.
func WithMaxReaders(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxReaders = n
		}
	}
}

// WithLogger sets the logger for warnings and progress messages.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// Compile parses the manifest at path and loads it into a new temporary
// store. Malformed lines are logged and skipped. Any other failure aborts
// the compile with an *IngestionError and removes the temporary store.
func Compile(ctx context.Context, kind *api.Kind, path string, opts ...Option) (*Store, error) {
	o := options{maxReaders: DefaultMaxReaders, logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	fail := func(op string, err error) (*Store, error) {
		return nil, &IngestionError{Op: op, Path: path, Err: err}
	}

	if err := kind.Validate(); err != nil {
		return fail("validate kind", err)
	}

	fsys, name := o.fs, path
	if fsys == nil {
		abs, err := filepath.Abs(path)
		if err != nil {
			return fail("resolve path", err)
		}
		fsys, name = osfs.New(filepath.Dir(abs)), filepath.Base(abs)
	}

	info, err := fsys.Stat(name)
	if err != nil {
		return fail("stat manifest", err)
	}
	if info.IsDir() {
		return fail("stat manifest", fmt.Errorf("%s is a directory", path))
	}
	f, err := fsys.Open(name)
	if err != nil {
		return fail("open manifest", err)
	}
	defer func() { _ = f.Close() }() // read-only

	tmp, err := os.CreateTemp(o.tempDir, kind.Name+"_db_*.sqlite")
	if err != nil {
		return fail("create store file", err)
	}
	dbPath := tmp.Name()
	if err := tmp.Close(); err != nil {
		removeStoreFile(o.logger, dbPath)
		return fail("create store file", err)
	}

	res, err := load(ctx, dbPath, path, kind, f, o.logger)
	if err != nil {
		removeStoreFile(o.logger, dbPath)
		return nil, err
	}

	if err := os.Chtimes(dbPath, info.ModTime(), info.ModTime()); err != nil {
		o.logger.Warn("failed to set modification time on store", "store", dbPath, "error", err)
	}

	db, err := openReader(ctx, dbPath, o.maxReaders)
	if err != nil {
		removeStoreFile(o.logger, dbPath)
		return fail("open store for reading", err)
	}

	s := &Store{
		kind:   kind,
		db:     db,
		path:   dbPath,
		source: SourceVersion{Path: path, ModTime: info.ModTime(), Size: info.Size()},
		summary: Summary{
			Parse:      res.stats,
			Listings:   res.listings,
			Categories: res.categories,
		},
		q:      buildQueries(kind),
		logger: o.logger,
	}
	o.logger.Info("compiled manifest",
		"kind", kind.Name,
		"manifest", path,
		"store", dbPath,
		"listings", res.listings,
		"categories", res.categories,
		"skipped", res.stats.Skipped,
	)
	return s, nil
}

// openReader opens the compiled store read-only with a bounded pool.
func openReader(ctx context.Context, dbPath string, maxConns int) (*sql.DB, error) {
	dsn, err := storeDSN(dbPath, "mode=ro&_pragma=query_only(1)")
	if err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(maxConns)
	db.SetMaxIdleConns(maxConns)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close() // nothing to flush
		return nil, err
	}
	return db, nil
}

// storeDSN builds a file: URI for the store at path. The path is escaped
// so that '?', '#' and '%' in directory names survive URI parsing.
func storeDSN(path, query string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	u := url.URL{Scheme: "file", Path: filepath.ToSlash(abs), RawQuery: query}
	return u.String(), nil
}

func removeStoreFile(logger *slog.Logger, path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logger.Warn("failed to remove store file", "store", path, "error", err)
	}
}

// Kind returns the dataset kind of the store.
func (s *Store) Kind() *api.Kind { return s.kind }

// Path returns the location of the compiled store file.
func (s *Store) Path() string { return s.path }

// SourcePath returns the manifest path the store was compiled from.
func (s *Store) SourcePath() string { return s.source.Path }

// SourceVersion returns the manifest fingerprint captured at compile time.
func (s *Store) SourceVersion() SourceVersion { return s.source }

// Summary returns parse and load counts from the compile.
func (s *Store) Summary() Summary { return s.summary }

// Categories returns the categories that own at least one eligible
// listing, ordered by name. includeLongOnly is part of the shared
// contract across kinds; no kind distinguishes short and long listings
// yet, so it does not change the result. allowed filters by compatibility
// class for kinds with a class field and is ignored otherwise; nil allows
// every class.
func (s *Store) Categories(ctx context.Context, includeLongOnly bool, allowed *ClassSet) ([]Category, error) {
	query, args := categoriesQuery(s.kind, allowed)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query categories: %w", err)
	}
	defer s.closeRows(rows)

	var out []Category
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate categories: %w", err)
	}
	return out, nil
}

// Listings returns the listings of a category ordered by name. An unknown
// category yields an empty slice, not an error.
func (s *Store) Listings(ctx context.Context, categoryID int64) ([]Listing, error) {
	rows, err := s.db.QueryContext(ctx, s.q.listings, categoryID)
	if err != nil {
		return nil, fmt.Errorf("query listings of category %d: %w", categoryID, err)
	}
	defer s.closeRows(rows)

	var out []Listing
	for rows.Next() {
		var l Listing
		if err := rows.Scan(&l.ID, &l.CategoryID, &l.Name, &l.Description); err != nil {
			return nil, fmt.Errorf("scan listing: %w", err)
		}
		out = append(out, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate listings: %w", err)
	}
	return out, nil
}

// Detail fetches the listing with its detail row.
// Returns an error wrapping ErrNotFound if no such pair exists.
func (s *Store) Detail(ctx context.Context, listingID int64) (*Record, error) {
	rec, dest := s.newRecord()
	err := s.db.QueryRowContext(ctx, s.q.detail, listingID).Scan(dest...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("listing %d: %w", listingID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("query listing %d: %w", listingID, err)
	}
	return rec, nil
}

// Records returns every listing of a category joined with its detail row,
// ordered by name.
func (s *Store) Records(ctx context.Context, categoryID int64) ([]*Record, error) {
	rows, err := s.db.QueryContext(ctx, s.q.records, categoryID)
	if err != nil {
		return nil, fmt.Errorf("query records of category %d: %w", categoryID, err)
	}
	defer s.closeRows(rows)

	var out []*Record
	for rows.Next() {
		rec, dest := s.newRecord()
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}
	return out, nil
}

// closeRows releases a result set. A failure here does not affect the
// rows already read, so it is only logged.
func (s *Store) closeRows(rows io.Closer) {
	if err := rows.Close(); err != nil {
		s.logger.Warn("failed to close result rows", "store", s.path, "error", err)
	}
}

// newRecord returns an empty record and the scan destinations for a
// row of the detail/records queries.
func (s *Store) newRecord() (*Record, []any) {
	rec := &Record{kind: s.kind, values: make([]string, len(s.kind.Fields))}
	dest := make([]any, 0, 4+len(rec.values))
	dest = append(dest, &rec.ID, &rec.CategoryID, &rec.Name, &rec.Description)
	for i := range rec.values {
		dest = append(dest, &rec.values[i])
	}
	return rec, dest
}

// Close releases the read pool and deletes the store file. Failures are
// logged, not returned. Close is idempotent.
func (s *Store) Close() {
	s.closeOnce.Do(func() {
		if err := s.db.Close(); err != nil {
			s.logger.Warn("failed to close store", "store", s.path, "error", err)
		}
		removeStoreFile(s.logger, s.path)
	})
}
