// Package domain holds the loader row shapes, sink tables and ports
package domain

import (
	"context"
	"time"

	"telewarehouse/internal/platform/store"
	strs "telewarehouse/internal/platform/strings"
	coldom "telewarehouse/internal/services/collector/domain"
	infdom "telewarehouse/internal/services/inference/domain"
)

// PostRecord is one staged post as written by the collector
type PostRecord = coldom.Record

// Column is one sink column with its type per backend
type Column struct {
	Name   string
	PGType string
	CHType string
}

// Table is a sink table definition
type Table struct {
	Ident   store.Ident
	Columns []Column
	// OrderBy is the clickhouse sorting key
	OrderBy string
}

// Names returns the column names in order
func (t Table) Names() []string {
	out := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		out[i] = c.Name
	}
	return out
}

// MessagesTable mirrors PostRecord
var MessagesTable = Table{
	Ident: store.Ident{Schema: "raw", Table: "telegram_messages"},
	Columns: []Column{
		{Name: "message_id", PGType: "BIGINT", CHType: "Int64"},
		{Name: "date", PGType: "TIMESTAMPTZ", CHType: "DateTime64(0, 'UTC')"},
		{Name: "text", PGType: "TEXT", CHType: "Nullable(String)"},
		{Name: "views", PGType: "BIGINT", CHType: "Nullable(Int64)"},
		{Name: "forwards", PGType: "BIGINT", CHType: "Nullable(Int64)"},
		{Name: "image_path", PGType: "TEXT", CHType: "Nullable(String)"},
		{Name: "channel", PGType: "TEXT", CHType: "String"},
	},
	OrderBy: "(channel, message_id)",
}

// DetectionsTable mirrors the detections table with lists flattened
var DetectionsTable = Table{
	Ident: store.Ident{Schema: "detection", Table: "yolo_results"},
	Columns: []Column{
		{Name: "message_id", PGType: "BIGINT", CHType: "Int64"},
		{Name: "channel", PGType: "TEXT", CHType: "String"},
		{Name: "detected_objects", PGType: "TEXT", CHType: "String"},
		{Name: "confidence_scores", PGType: "TEXT", CHType: "String"},
		{Name: "image_category", PGType: "TEXT", CHType: "LowCardinality(String)"},
	},
	OrderBy: "(channel, message_id)",
}

// MessageRow converts a staged post into a sink row in MessagesTable order
func MessageRow(r PostRecord) ([]any, error) {
	ts, err := time.Parse(time.RFC3339, r.Date)
	if err != nil {
		return nil, err
	}
	return []any{r.MessageID, ts.UTC(), strs.NullPtr(r.Text), strs.NullPtr(r.Views), strs.NullPtr(r.Forwards), strs.NullPtr(r.ImagePath), r.Channel}, nil
}

// DetectionRow converts a detection result into a sink row in DetectionsTable order
func DetectionRow(r infdom.Result) []any {
	return []any{
		r.MessageID,
		r.Channel,
		infdom.FormatObjects(r.Objects),
		infdom.FormatScores(r.Scores),
		string(r.Category),
	}
}

// Report summarizes one load
type Report struct {
	Batches  int
	Broken   int
	Messages int64
	// MessagesSkipped is set when no records were found and the table was left alone
	MessagesSkipped bool

	Detections        int64
	DetectionsSkipped bool
}

// Storage replaces the sink tables
type Storage interface {
	ReplaceMessages(ctx context.Context, rows [][]any) (int64, error)
	ReplaceDetections(ctx context.Context, rows [][]any) (int64, error)
}

// LoaderPort is the public port exposed by the module
type LoaderPort interface {
	Load(ctx context.Context) (Report, error)
}
