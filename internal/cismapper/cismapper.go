// Package cismapper defines the CisMapper dataset kind: genome releases
// with per-tissue histone and expression tracks used to predict
// regulatory links.
package cismapper

import (
	"context"
	"fmt"

	"github.com/agentic-research/manifestdb/api"
	"github.com/agentic-research/manifestdb/internal/dblist"
)

// Attribute names, in manifest order after name and description.
const (
	FieldGenomeRelease      = "genome_release"
	FieldRNASource          = "rna_source"
	FieldTissues            = "tissues"
	FieldHistoneRoot        = "histone_root"
	FieldHistoneNames       = "histone_names"
	FieldMaxLinkDistances   = "max_link_distances"
	FieldExpressionRoot     = "expression_root"
	FieldExpressionFileType = "expression_file_type"
	FieldAnnotationFileName = "annotation_file_name"
	FieldAnnotationType     = "annotation_type"
	FieldTranscriptTypes    = "transcript_types"
)

// Kind is the manifest layout: 13 tab-separated fields per line.
var Kind = &api.Kind{
	Name:  "cismapper",
	Table: "cismapper_db",
	Fields: []api.Field{
		{Name: FieldGenomeRelease, External: true},
		{Name: FieldRNASource},
		{Name: FieldTissues, External: true},
		{Name: FieldHistoneRoot},
		{Name: FieldHistoneNames, External: true},
		{Name: FieldMaxLinkDistances, External: true},
		{Name: FieldExpressionRoot},
		{Name: FieldExpressionFileType, External: true},
		{Name: FieldAnnotationFileName},
		{Name: FieldAnnotationType},
		{Name: FieldTranscriptTypes},
	},
}

// List is a compiled CisMapper manifest.
type List struct {
	*dblist.Store
}

// Compile builds a List from the manifest at path.
func Compile(ctx context.Context, path string, opts ...dblist.Option) (*List, error) {
	s, err := dblist.Compile(ctx, Kind, path, opts...)
	if err != nil {
		return nil, err
	}
	return &List{Store: s}, nil
}

// Listing fetches the CisMapper database entry for a listing id.
func (l *List) Listing(ctx context.Context, listingID int64) (*DB, error) {
	rec, err := l.Detail(ctx, listingID)
	if err != nil {
		return nil, err
	}
	return FromRecord(rec)
}

// FromRecord converts a generic record of this kind.
func FromRecord(rec *dblist.Record) (*DB, error) {
	k := rec.Kind()
	if k.Table != Kind.Table || k.FieldCount() != Kind.FieldCount() {
		return nil, fmt.Errorf("record of kind %s is not a cismapper record", k.Name)
	}
	return &DB{rec: rec}, nil
}

// DB is one CisMapper database entry. It is immutable.
type DB struct {
	rec *dblist.Record
}

func (d *DB) ListingID() int64 { return d.rec.ID }
func (d *DB) Name() string { return d.rec.Name }
func (d *DB) Description() string { return d.rec.Description }
func (d *DB) GenomeRelease() string { return d.rec.Value(FieldGenomeRelease) }
func (d *DB) RNASource() string { return d.rec.Value(FieldRNASource) }
func (d *DB) Tissues() string { return d.rec.Value(FieldTissues) }
func (d *DB) HistoneRoot() string { return d.rec.Value(FieldHistoneRoot) }
func (d *DB) HistoneNames() string { return d.rec.Value(FieldHistoneNames) }
func (d *DB) MaxLinkDistances() string { return d.rec.Value(FieldMaxLinkDistances) }
func (d *DB) ExpressionRoot() string { return d.rec.Value(FieldExpressionRoot) }
func (d *DB) ExpressionFileType() string { return d.rec.Value(FieldExpressionFileType) }
func (d *DB) AnnotationFileName() string { return d.rec.Value(FieldAnnotationFileName) }
func (d *DB) AnnotationType() string { return d.rec.Value(FieldAnnotationType) }
func (d *DB) TranscriptTypes() string { return d.rec.Value(FieldTranscriptTypes) }
func (d *DB) TissueList() []string { return dblist.SplitList(d.Tissues()) }
func (d *DB) HistoneNameList() []string { return dblist.SplitList(d.HistoneNames()) }
func (d *DB) TranscriptTypeList() []string { return dblist.SplitList(d.TranscriptTypes()) }

// MaxLinkDistanceList splits max_link_distances. Values are not parsed.
func (d *DB) MaxLinkDistanceList() []string { return dblist.SplitList(d.MaxLinkDistances()) }

// Record returns the underlying generic record.
func (d *DB) Record() *dblist.Record { return d.rec }

// ExternalView returns the fields exposed to clients: name, description,
// genome_release, tissues, histone_names, max_link_distances and
// expression_file_type.
func (d *DB) ExternalView() dblist.View {
	return d.rec.ExternalView()
}
