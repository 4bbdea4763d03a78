package domain

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"telewarehouse/internal/core/classify"
)

// Columns is the header of the detections table
var Columns = []string{"message_id", "channel", "detected_objects", "confidence_scores", "image_category"}

// sentinels for empty lists in the table
const (
	NoObjects = "none"
	NoScores  = "0.00"
)

// ValidLabel reports whether label survives the comma joined objects column
func ValidLabel(label string) bool {
	return label != "" && label != NoObjects && !strings.ContainsAny(label, ",\r\n")
}

// FormatObjects joins labels with commas, empty is NoObjects
func FormatObjects(objs []string) string {
	if len(objs) == 0 {
		return NoObjects
	}
	return strings.Join(objs, ",")
}

// FormatScores joins scores with two decimals, empty is NoScores
func FormatScores(scores []float64) string {
	if len(scores) == 0 {
		return NoScores
	}
	parts := make([]string, len(scores))
	for i, s := range scores {
		parts[i] = strconv.FormatFloat(s, 'f', 2, 64)
	}
	return strings.Join(parts, ",")
}

// Record renders r as one table row
func (r Result) Record() []string {
	return []string{
		strconv.FormatInt(r.MessageID, 10),
		r.Channel,
		FormatObjects(r.Objects),
		FormatScores(r.Scores),
		string(r.Category),
	}
}

// WriteTable writes the header and rows as CSV
func WriteTable(w io.Writer, rows []Result) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Columns); err != nil {
		return err
	}
	for _, r := range rows {
		if err := cw.Write(r.Record()); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadTable parses a detections table written by WriteTable
func ReadTable(r io.Reader) ([]Result, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(Columns)
	head, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	for i, c := range Columns {
		if head[i] != c {
			return nil, fmt.Errorf("detections: unexpected column %d %q want %q", i, head[i], c)
		}
	}
	var out []Result
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		row, err := parseRecord(rec)
		if err != nil {
			line, _ := cr.FieldPos(0)
			return nil, fmt.Errorf("detections: line %d: %w", line, err)
		}
		out = append(out, row)
	}
}

func parseRecord(rec []string) (Result, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(rec[0]), 10, 64)
	if err != nil {
		return Result{}, fmt.Errorf("message_id: %w", err)
	}
	r := Result{MessageID: id, Channel: rec[1], Category: classify.Category(rec[4])}
	if rec[2] != NoObjects && rec[2] != "" {
		r.Objects = strings.Split(rec[2], ",")
	}
	if len(r.Objects) > 0 {
		for s := range strings.SplitSeq(rec[3], ",") {
			f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
			if err != nil {
				return Result{}, fmt.Errorf("confidence_scores: %w", err)
			}
			r.Scores = append(r.Scores, f)
		}
	}
	if len(r.Objects) != len(r.Scores) {
		return Result{}, fmt.Errorf("%d objects but %d scores", len(r.Objects), len(r.Scores))
	}
	if !r.Category.Valid() {
		return Result{}, fmt.Errorf("unknown image_category %q", rec[4])
	}
	return r, nil
}
