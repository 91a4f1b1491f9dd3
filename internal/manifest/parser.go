// Package manifest reads tab-separated dataset manifests.
//
// Each non-blank, non-comment line is either a listing record (name,
// description, then the kind's attribute fields in order) or, for kinds
// that enable it, a single-field category header. Content problems are
// reported as warnings and the line is skipped; only I/O failures stop a
// scan.
package manifest

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"strings"

	"github.com/agentic-research/manifestdb/api"
)

var fieldSep = regexp.MustCompile(`\s*\t\s*`)

// EntryType distinguishes listing records from category headers.
type EntryType int

const (
	EntryListing EntryType = iota
	EntryCategory
)

func (t EntryType) String() string {
	if t == EntryCategory {
		return "category"
	}
	return "listing"
}

// Entry is one accepted manifest line.
type Entry struct {
	Line        int
	Type        EntryType
	Name        string
	Description string
	// Values holds the kind's attribute fields in manifest order.
	// Nil for category headers.
	Values []string
}

// MalformedRecordError describes a rejected line.
type MalformedRecordError struct {
	Line     int
	Fields   int
	Expected int
	Reason   string
}

func (e *MalformedRecordError) Error() string {
	return fmt.Sprintf("line %d: %s (%d fields, expected %d)", e.Line, e.Reason, e.Fields, e.Expected)
}

// Stats counts what a scan saw.
type Stats struct {
	Lines    int
	Accepted int
	Headers  int
	Skipped  int
	Comments int
	Blank    int
}

// Parser splits manifest lines according to a Kind.
type Parser struct {
	kind   *api.Kind
	logger *slog.Logger

	// OnMalformed, if set, receives every rejected line after it is logged.
	OnMalformed func(*MalformedRecordError)
}

// NewParser returns a parser for kind. A nil logger uses slog.Default().
func NewParser(kind *api.Kind, logger *slog.Logger) *Parser {
	if logger == nil {
		logger = slog.Default()
	}
	return &Parser{kind: kind, logger: logger}
}

// Scan reads r line by line and calls fn for each accepted entry.
// It returns an error only when reading fails or fn returns one.
func (p *Parser) Scan(r io.Reader, fn func(Entry) error) (Stats, error) {
	var stats Stats
	want := p.kind.FieldCount()

	br := bufio.NewReader(r)
	for {
		raw, err := br.ReadString('\n')
		if err != nil && err != io.EOF {
			return stats, fmt.Errorf("read manifest line %d: %w", stats.Lines+1, err)
		}
		if raw == "" && err == io.EOF {
			return stats, nil
		}

		stats.Lines++
		if stats.Lines == 1 {
			raw = strings.TrimPrefix(raw, "\ufeff")
		}

		entry, class := p.classify(raw, stats.Lines, want)
		switch class {
		case lineBlank:
			stats.Blank++
		case lineComment:
			stats.Comments++
		case lineMalformed:
			stats.Skipped++
		case lineHeader:
			stats.Headers++
		default:
			stats.Accepted++
		}
		if class == lineRecord || class == lineHeader {
			if err := fn(entry); err != nil {
				return stats, err
			}
		}
		if err == io.EOF {
			return stats, nil
		}
	}
}

type lineClass int

const (
	lineRecord lineClass = iota
	lineHeader
	lineBlank
	lineComment
	lineMalformed
)

func (p *Parser) classify(raw string, n, want int) (Entry, lineClass) {
	if strings.TrimSpace(raw) == "" {
		return Entry{}, lineBlank
	}
	// Leading tabs are kept: they mark an empty name column.
	line := strings.TrimLeft(strings.TrimRight(raw, " \t\r\n"), " ")
	if strings.HasPrefix(strings.TrimSpace(line), "#") {
		return Entry{}, lineComment
	}

	values := fieldSep.Split(line, -1)
	if p.kind.CategoryHeaders && len(values) == 1 {
		return Entry{Line: n, Type: EntryCategory, Name: strings.TrimSpace(values[0])}, lineHeader
	}
	if len(values) < want {
		p.malformed(&MalformedRecordError{Line: n, Fields: len(values), Expected: want, Reason: "too few fields"})
		return Entry{}, lineMalformed
	}
	if strings.TrimSpace(values[0]) == "" {
		p.malformed(&MalformedRecordError{Line: n, Fields: len(values), Expected: want, Reason: "no entry for name column"})
		return Entry{}, lineMalformed
	}

	attrs := make([]string, want-2)
	copy(attrs, values[2:want])
	return Entry{
		Line:        n,
		Type:        EntryListing,
		Name:        values[0],
		Description: values[1],
		Values:      attrs,
	}, lineRecord
}

func (p *Parser) malformed(e *MalformedRecordError) {
	p.logger.Warn("skipping malformed manifest line",
		"kind", p.kind.Name,
		"line", e.Line,
		"fields", e.Fields,
		"expected", e.Expected,
		"reason", e.Reason,
	)
	if p.OnMalformed != nil {
		p.OnMalformed(e)
	}
}
