package domain

import (
	"bytes"
	"strings"
	"testing"

	"telewarehouse/internal/core/classify"
)

func TestNewResult_AlignedAndClassified(t *testing.T) {
	r := NewResult("lobelia4cosmetics", 42, []Detection{{"person", 0.91}, {"bottle", 0.456}})
	if len(r.Objects) != len(r.Scores) {
		t.Fatalf("misaligned: %v %v", r.Objects, r.Scores)
	}
	if r.Category != classify.Promotional {
		t.Fatalf("category = %s", r.Category)
	}
	empty := NewResult("c", 1, nil)
	if len(empty.Objects) != 0 || len(empty.Scores) != 0 || empty.Category != classify.Other {
		t.Fatalf("empty result = %+v", empty)
	}
}

func TestWriteTable_Format(t *testing.T) {
	rows := []Result{
		NewResult("lobelia4cosmetics", 42, []Detection{{"person", 0.91}, {"bottle", 0.456}}),
		NewResult("tikvahpharma", 7, nil),
	}
	var buf bytes.Buffer
	if err := WriteTable(&buf, rows); err != nil {
		t.Fatal(err)
	}
	want := strings.Join([]string{
		"message_id,channel,detected_objects,confidence_scores,image_category",
		`42,lobelia4cosmetics,"person,bottle","0.91,0.46",promotional`,
		"7,tikvahpharma,none,0.00,other",
		"",
	}, "\n")
	if buf.String() != want {
		t.Fatalf("got:\n%s\nwant:\n%s", buf.String(), want)
	}
}

func TestReadTable_RoundTripsSentinels(t *testing.T) {
	in := rowsFixture()
	var buf bytes.Buffer
	if err := WriteTable(&buf, in); err != nil {
		t.Fatal(err)
	}
	out, err := ReadTable(&buf)
	if err != nil {
		t.Fatalf("ReadTable: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("rows = %d", len(out))
	}
	if out[1].Objects != nil || out[1].Scores != nil {
		t.Fatalf("sentinels should decode to empty lists: %+v", out[1])
	}
	if out[0].Scores[1] != 0.46 {
		t.Fatalf("scores = %v", out[0].Scores)
	}
}

func TestReadTable_Rejects(t *testing.T) {
	cases := map[string]string{
		"bad header":   "id,channel,detected_objects,confidence_scores,image_category\n",
		"misaligned":   "message_id,channel,detected_objects,confidence_scores,image_category\n1,c,\"a,b\",0.50,other\n",
		"bad category": "message_id,channel,detected_objects,confidence_scores,image_category\n1,c,none,0.00,ads\n",
		"bad id":       "message_id,channel,detected_objects,confidence_scores,image_category\nx,c,none,0.00,other\n",
	}
	for name, in := range cases {
		if _, err := ReadTable(strings.NewReader(in)); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
	if rows, err := ReadTable(strings.NewReader("")); err != nil || rows != nil {
		t.Fatalf("empty input = %v, %v", rows, err)
	}
}

func TestValidLabel(t *testing.T) {
	for _, l := range []string{"person", "cell phone", "teddy bear"} {
		if !ValidLabel(l) {
			t.Fatalf("%q should be valid", l)
		}
	}
	for _, l := range []string{"", NoObjects, "a,b", "line\nbreak"} {
		if ValidLabel(l) {
			t.Fatalf("%q should be rejected", l)
		}
	}
}

func rowsFixture() []Result {
	return []Result{
		NewResult("lobelia4cosmetics", 42, []Detection{{"person", 0.91}, {"bottle", 0.456}}),
		NewResult("tikvahpharma", 7, nil),
	}
}
