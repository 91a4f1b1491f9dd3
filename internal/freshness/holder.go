// Package freshness keeps a compiled store in step with its manifest.
//
// A Holder serves queries from the current store and replaces it with a
// freshly compiled one when the manifest changes on disk. Stores are never
// rebuilt in place; a refresh always compiles a new one and swaps it in.
package freshness

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/agentic-research/manifestdb/internal/dblist"
	billy "github.com/go-git/go-billy/v5"
)

// CompileFunc builds a new store from the manifest. It is called by
// Refresh whenever the manifest no longer matches the current store.
type CompileFunc func(ctx context.Context) (*dblist.Store, error)

// Holder is a thread-safe wrapper that allows swapping the underlying store.
type Holder struct {
	mu      sync.RWMutex
	current *dblist.Store

	refreshMu sync.Mutex // serializes Refresh
	compile   CompileFunc
	fs        billy.Filesystem
	logger    *slog.Logger
}

// Option configures a Holder.
type Option func(*Holder)

// WithFilesystem stats the manifest through fsys. It must match the
// filesystem the compile func reads from.
func WithFilesystem(fsys billy.Filesystem) Option {
	return func(h *Holder) { h.fs = fsys }
}

// WithLogger sets the logger for swap and failure messages.
func WithLogger(l *slog.Logger) Option {
	return func(h *Holder) {
		if l != nil {
			h.logger = l
		}
	}
}

// New wraps initial. The Holder takes ownership of every store it serves
// and closes it when it is replaced or the Holder is closed.
func New(initial *dblist.Store, compile CompileFunc, opts ...Option) *Holder {
	h := &Holder{current: initial, compile: compile, logger: slog.Default()}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Current returns the store being served. It stays valid until the next
// successful Refresh; callers that need it longer should go through the
// Holder's query methods instead.
func (h *Holder) Current() *dblist.Store {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.current
}

// Stale reports whether the manifest on disk differs from the one the
// current store was compiled from.
func (h *Holder) Stale() (bool, error) {
	v := h.Current().SourceVersion()
	info, err := h.stat(v.Path)
	if err != nil {
		return false, fmt.Errorf("stat manifest %s: %w", v.Path, err)
	}
	return !v.Matches(info), nil
}

func (h *Holder) stat(path string) (fs.FileInfo, error) {
	if h.fs != nil {
		return h.fs.Stat(path)
	}
	return os.Stat(path)
}

// Refresh compiles and swaps in a new store if the manifest changed.
// It reports whether a swap happened. On failure the current store keeps
// serving and the error is returned.
func (h *Holder) Refresh(ctx context.Context) (bool, error) {
	h.refreshMu.Lock()
	defer h.refreshMu.Unlock()

	stale, err := h.Stale()
	if err != nil || !stale {
		return false, err
	}

	next, err := h.compile(ctx)
	if err != nil {
		return false, err
	}

	old := h.swap(next)
	// Swap waited for in-flight readers, so nothing uses old any more.
	old.Close()

	h.logger.Info("swapped store",
		"manifest", next.SourcePath(),
		"store", next.Path(),
		"listings", next.Summary().Listings,
	)
	return true, nil
}

// swap atomically replaces the current store and returns the previous one.
func (h *Holder) swap(next *dblist.Store) *dblist.Store {
	h.mu.Lock()
	defer h.mu.Unlock()
	old := h.current
	h.current = next
	return old
}

// Watch calls Refresh every interval until ctx is done. Refresh failures
// are logged and the old store keeps serving. It returns ctx.Err().
func (h *Holder) Watch(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := h.Refresh(ctx); err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				h.logger.Warn("refresh failed, keeping current store", "error", err)
			}
		}
	}
}

// Categories delegates to the current store.
func (h *Holder) Categories(ctx context.Context, includeLongOnly bool, allowed *dblist.ClassSet) ([]dblist.Category, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.current.Categories(ctx, includeLongOnly, allowed)
}

// Listings delegates to the current store.
func (h *Holder) Listings(ctx context.Context, categoryID int64) ([]dblist.Listing, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.current.Listings(ctx, categoryID)
}

// Detail delegates to the current store.
func (h *Holder) Detail(ctx context.Context, listingID int64) (*dblist.Record, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.current.Detail(ctx, listingID)
}

// Records delegates to the current store.
func (h *Holder) Records(ctx context.Context, categoryID int64) ([]*dblist.Record, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.current.Records(ctx, categoryID)
}

// Close closes the current store.
func (h *Holder) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.current.Close()
}
