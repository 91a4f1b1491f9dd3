package manifest

import (
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/agentic-research/manifestdb/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// threeField is name, description, and one attribute.
var threeField = &api.Kind{
	Name:   "tiny",
	Table:  "tiny_db",
	Fields: []api.Field{{Name: "path"}},
}

func scanAll(t *testing.T, kind *api.Kind, input string) ([]Entry, []*MalformedRecordError, Stats) {
	t.Helper()
	p := NewParser(kind, nil)
	var bad []*MalformedRecordError
	p.OnMalformed = func(e *MalformedRecordError) { bad = append(bad, e) }

	var entries []Entry
	stats, err := p.Scan(strings.NewReader(input), func(e Entry) error {
		entries = append(entries, e)
		return nil
	})
	require.NoError(t, err)
	return entries, bad, stats
}

func TestParser_AcceptsWellFormedLines(t *testing.T) {
	input := "liver\tLiver tissue\t/data/liver\n" +
		"blood \t Blood  \t /data/blood  \n"

	entries, bad, stats := scanAll(t, threeField, input)
	assert.Empty(t, bad)
	require.Len(t, entries, 2)

	assert.Equal(t, Entry{Line: 1, Type: EntryListing, Name: "liver", Description: "Liver tissue", Values: []string{"/data/liver"}}, entries[0])
	// whitespace around tabs is part of the separator
	assert.Equal(t, "blood", entries[1].Name)
	assert.Equal(t, "Blood", entries[1].Description)
	assert.Equal(t, []string{"/data/blood"}, entries[1].Values)
	assert.Equal(t, Stats{Lines: 2, Accepted: 2}, stats)
}

func TestParser_SkipsBlankAndComments(t *testing.T) {
	input := "\n   \n# header comment\n  # indented comment\nx\ty\tz\n\t \n"

	entries, bad, stats := scanAll(t, threeField, input)
	assert.Empty(t, bad)
	require.Len(t, entries, 1)
	assert.Equal(t, 5, entries[0].Line)
	assert.Equal(t, 3, stats.Blank)
	assert.Equal(t, 2, stats.Comments)
	assert.Equal(t, 1, stats.Accepted)
}

func TestParser_TooFewFields(t *testing.T) {
	input := "only\ttwo\nfine\tline\tpath\n"

	entries, bad, stats := scanAll(t, threeField, input)
	require.Len(t, entries, 1)
	assert.Equal(t, "fine", entries[0].Name)

	require.Len(t, bad, 1)
	assert.Equal(t, 1, bad[0].Line)
	assert.Equal(t, 2, bad[0].Fields)
	assert.Equal(t, 3, bad[0].Expected)
	assert.Contains(t, bad[0].Error(), "expected 3")
	assert.Equal(t, 1, stats.Skipped)
}

func TestParser_EmptyName(t *testing.T) {
	input := "\tdesc\tpath\n  \tdesc\tpath\n"

	entries, bad, stats := scanAll(t, threeField, input)
	assert.Empty(t, entries)
	require.Len(t, bad, 2)
	assert.Equal(t, "no entry for name column", bad[0].Reason)
	assert.Equal(t, 2, stats.Skipped)
}

func TestParser_ExtraFieldsIgnored(t *testing.T) {
	entries, bad, _ := scanAll(t, threeField, "a\tb\tc\td\te\n")
	assert.Empty(t, bad)
	require.Len(t, entries, 1)
	assert.Equal(t, []string{"c"}, entries[0].Values)
}

func TestParser_CategoryHeaders(t *testing.T) {
	kind := *threeField
	kind.CategoryHeaders = true

	input := "Vertebrates\nhuman\tHuman\thg\nInsects\t\nfly\tFly\tdm\n"
	entries, bad, stats := scanAll(t, &kind, input)
	assert.Empty(t, bad)
	require.Len(t, entries, 4)
	assert.Equal(t, EntryCategory, entries[0].Type)
	assert.Equal(t, "Vertebrates", entries[0].Name)
	assert.Nil(t, entries[0].Values)
	assert.Equal(t, EntryCategory, entries[2].Type)
	assert.Equal(t, "Insects", entries[2].Name)
	assert.Equal(t, 2, stats.Headers)
	assert.Equal(t, 2, stats.Accepted)

	// Without the flag a single-field line is just short.
	entries, bad, _ = scanAll(t, threeField, input)
	assert.Len(t, entries, 2)
	assert.Len(t, bad, 2)
}

func TestParser_StripsBOMAndCRLF(t *testing.T) {
	entries, bad, _ := scanAll(t, threeField, "\ufeffa\tb\tc\r\n")
	assert.Empty(t, bad)
	require.Len(t, entries, 1)
	assert.Equal(t, "a", entries[0].Name)
	assert.Equal(t, []string{"c"}, entries[0].Values)
}

func TestParser_CallbackErrorStopsScan(t *testing.T) {
	stop := errors.New("stop")
	p := NewParser(threeField, nil)
	calls := 0
	_, err := p.Scan(strings.NewReader("a\tb\tc\nd\te\tf\n"), func(Entry) error {
		calls++
		return stop
	})
	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 1, calls)
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, io.ErrUnexpectedEOF }

func TestParser_ReadErrorIsReturned(t *testing.T) {
	p := NewParser(threeField, nil)
	_, err := p.Scan(failingReader{}, func(Entry) error { return nil })
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestEntryType_String(t *testing.T) {
	assert.Equal(t, "listing", EntryListing.String())
	assert.Equal(t, "category", EntryCategory.String())
}

func TestParser_VeryLongLines(t *testing.T) {
	huge := strings.Repeat("x", 2<<20)
	input := "a\tfirst\ta.txt\n" +
		"big\t" + huge + "\tbig.txt\n" +
		"short\t" + huge + "\n" +
		"z\tlast\tz.txt"

	entries, bad, stats := scanAll(t, threeField, input)
	require.Len(t, entries, 3)
	assert.Equal(t, "a", entries[0].Name)
	assert.Equal(t, "big", entries[1].Name)
	assert.Len(t, entries[1].Description, len(huge))
	assert.Equal(t, []string{"big.txt"}, entries[1].Values)
	assert.Equal(t, "z", entries[2].Name)
	assert.Equal(t, 4, entries[2].Line)

	require.Len(t, bad, 1)
	assert.Equal(t, 3, bad[0].Line)
	assert.Equal(t, 4, stats.Lines)
	assert.Equal(t, 3, stats.Accepted)
	assert.Equal(t, 1, stats.Skipped)
}
