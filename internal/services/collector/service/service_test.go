package service

import (
	"context"
	"encoding/json"
	"errors"
	"iter"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	perr "telewarehouse/internal/platform/errors"
	"telewarehouse/internal/platform/staging"
	"telewarehouse/internal/platform/testkit"
	"telewarehouse/internal/services/collector/domain"
)

// fakeSource scripts channels and their posts
type fakeSource struct {
	channels  map[string]domain.Channel
	posts     map[string][]domain.Post
	failPhoto map[string]bool
	dropPhoto map[string]bool
	postsErr  map[string]error
	downloads int
}

func (f *fakeSource) Resolve(_ context.Context, ref string) (domain.Channel, error) {
	ch, ok := f.channels[ref]
	if !ok {
		return domain.Channel{}, perr.NotFoundf("no channel %q", ref)
	}
	ch.Ref = ref
	return ch, nil
}

func (f *fakeSource) Posts(_ context.Context, ch domain.Channel, limit int) iter.Seq2[domain.Post, error] {
	return func(yield func(domain.Post, error) bool) {
		for i, p := range f.posts[ch.Name()] {
			if i >= limit {
				return
			}
			if !yield(p, nil) {
				return
			}
		}
		if err := f.postsErr[ch.Name()]; err != nil {
			yield(domain.Post{}, err)
		}
	}
}

func (f *fakeSource) Download(_ context.Context, photo domain.Photo, dest string) (string, error) {
	f.downloads++
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return "", err
	}
	if f.dropPhoto[photo.URL] {
		// fails before anything reaches dest, as the atomic writer does
		return "", errors.New("tls handshake timeout")
	}
	if f.failPhoto[photo.URL] {
		// leave a partial file behind like a broken transfer would
		_ = os.WriteFile(dest, []byte("PART"), 0o644)
		return "", errors.New("connection reset")
	}
	return dest, os.WriteFile(dest, []byte("JPEG:"+photo.URL), 0o644)
}

func ptr[T any](v T) *T { return &v }

func post(id int64, photo string) domain.Post {
	p := domain.Post{
		ID:    id,
		Date:  time.Date(2025, 7, 14, 8, 0, 0, 0, time.UTC).Add(time.Duration(id) * time.Minute),
		Text:  ptr("post " + strings.Repeat("x", int(id%3))),
		Views: ptr(int64(id * 10)),
	}
	if photo != "" {
		p.Photo = &domain.Photo{URL: photo}
	}
	return p
}

func newFixture(t *testing.T) (*Service, *fakeSource, staging.Layout) {
	t.Helper()
	src := &fakeSource{
		channels: map[string]domain.Channel{
			"https://t.me/lobelia4cosmetics": {Username: "lobelia4cosmetics", Title: "Lobelia"},
			"https://t.me/tikvahpharma":      {Username: "tikvahpharma"},
			"@titleonly":                     {Title: "Title Only"},
		},
		posts: map[string][]domain.Post{
			"lobelia4cosmetics": {post(3, "p3"), post(2, ""), post(1, "p1")},
			"tikvahpharma":      {post(9, "p9")},
			"Title Only":        {},
		},
		failPhoto: map[string]bool{"p1": true},
		postsErr:  map[string]error{},
	}
	layout := staging.New(t.TempDir())
	svc := New(src, layout, Config{Limit: 50}, nil)
	svc.now = func() time.Time { return time.Date(2025, 7, 14, 12, 0, 0, 0, time.UTC) }
	return svc, src, layout
}

func readBatch(t *testing.T, path string) []domain.Record {
	t.Helper()
	var recs []domain.Record
	if err := json.Unmarshal(testkit.ReadFile(t, path), &recs); err != nil {
		t.Fatalf("decode %s: %v", path, err)
	}
	return recs
}

func TestCollect_WritesPartitionPerChannel(t *testing.T) {
	svc, _, layout := newFixture(t)
	day := svc.now()

	rep, err := svc.Collect(context.Background(), []string{"https://t.me/lobelia4cosmetics", "https://t.me/tikvahpharma", "@titleonly"})
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if rep.Succeeded() != 3 {
		t.Fatalf("succeeded = %d", rep.Succeeded())
	}

	recs := readBatch(t, layout.BatchPath(day, "lobelia4cosmetics"))
	if len(recs) != 3 {
		t.Fatalf("records = %d", len(recs))
	}
	if recs[0].MessageID != 3 || recs[0].Channel != "lobelia4cosmetics" || recs[0].Date != "2025-07-14T08:03:00+00:00" {
		t.Fatalf("record[0] = %+v", recs[0])
	}
	if recs[0].ImagePath == nil || *recs[0].ImagePath != layout.ImagePath("lobelia4cosmetics", 3) {
		t.Fatalf("image path = %v", recs[0].ImagePath)
	}
	if recs[1].ImagePath != nil {
		t.Fatalf("post without photo must have null image_path")
	}

	// title fallback for the canonical name
	if got := readBatch(t, layout.BatchPath(day, "Title Only")); len(got) != 0 {
		t.Fatalf("empty channel should write an empty array, got %d", len(got))
	}
	raw := string(testkit.ReadFile(t, layout.BatchPath(day, "Title Only")))
	if raw != "[]" {
		t.Fatalf("empty batch = %q", raw)
	}
	testkit.MustContain(t, string(testkit.ReadFile(t, layout.BatchPath(day, "tikvahpharma"))), "\n    {\n        \"message_id\": 9,")
}

func TestCollect_FailedDownloadNullsImagePath(t *testing.T) {
	svc, _, layout := newFixture(t)
	rep, err := svc.Collect(context.Background(), []string{"https://t.me/lobelia4cosmetics"})
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if rep.Channels[0].ImageFails != 1 || rep.Channels[0].Images != 1 {
		t.Fatalf("result = %+v", rep.Channels[0])
	}
	recs := readBatch(t, layout.BatchPath(svc.now(), "lobelia4cosmetics"))
	for _, r := range recs {
		if r.ImagePath == nil {
			continue
		}
		if _, err := os.Stat(*r.ImagePath); err != nil {
			t.Fatalf("record %d references missing file %s", r.MessageID, *r.ImagePath)
		}
	}
	if recs[2].MessageID != 1 || recs[2].ImagePath != nil {
		t.Fatalf("failed download should null image_path: %+v", recs[2])
	}
	testkit.MustNotExist(t, layout.ImagePath("lobelia4cosmetics", 1))
}

func TestCollect_FailedRedownloadKeepsStagedImage(t *testing.T) {
	svc, src, layout := newFixture(t)
	refs := []string{"https://t.me/tikvahpharma"}
	src.posts["tikvahpharma"] = []domain.Post{post(42, "p42")}

	day1 := time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return day1 }
	if _, err := svc.Collect(context.Background(), refs); err != nil {
		t.Fatalf("day 1: %v", err)
	}

	src.dropPhoto = map[string]bool{"p42": true}
	day2 := day1.AddDate(0, 0, 1)
	svc.now = func() time.Time { return day2 }
	rep, err := svc.Collect(context.Background(), refs)
	if err != nil {
		t.Fatalf("day 2: %v", err)
	}
	if rep.Channels[0].ImageFails != 0 {
		t.Fatalf("staged image should still count as referenced: %+v", rep.Channels[0])
	}

	img := layout.ImagePath("tikvahpharma", 42)
	if got := string(testkit.ReadFile(t, img)); got != "JPEG:p42" {
		t.Fatalf("staged image = %q", got)
	}
	for _, day := range []time.Time{day1, day2} {
		recs := readBatch(t, layout.BatchPath(day, "tikvahpharma"))
		if len(recs) != 1 || recs[0].ImagePath == nil || *recs[0].ImagePath != img {
			t.Fatalf("%s batch = %+v", day.Format(time.DateOnly), recs)
		}
	}
}

func TestCollect_IsolatesChannelFailures(t *testing.T) {
	svc, src, layout := newFixture(t)
	src.postsErr["tikvahpharma"] = errors.New("page 2 timed out")

	rep, err := svc.Collect(context.Background(), []string{"@missing", "https://t.me/tikvahpharma", "https://t.me/lobelia4cosmetics"})
	if err != nil {
		t.Fatalf("partial failure must not fail the run: %v", err)
	}
	if rep.Succeeded() != 1 {
		t.Fatalf("succeeded = %d", rep.Succeeded())
	}
	if !perr.IsCode(rep.Channels[0].Err, perr.ErrorCodeNotFound) {
		t.Fatalf("resolve error = %v", rep.Channels[0].Err)
	}
	testkit.MustNotExist(t, layout.BatchPath(svc.now(), "tikvahpharma"))
	if len(readBatch(t, layout.BatchPath(svc.now(), "lobelia4cosmetics"))) != 3 {
		t.Fatalf("healthy channel not written")
	}
}

func TestCollect_AllChannelsFailed(t *testing.T) {
	svc, _, layout := newFixture(t)
	_, err := svc.Collect(context.Background(), []string{"@nope", "@gone"})
	if !errors.Is(err, domain.ErrAllChannelsFailed) {
		t.Fatalf("expected ErrAllChannelsFailed, got %v", err)
	}
	// roots exist even when nothing was collected
	for _, d := range []string{layout.MessagesDir(), layout.ImagesDir()} {
		if ok, _ := staging.DirExists(d); !ok {
			t.Fatalf("%s should exist", d)
		}
	}
}

func TestCollect_RerunOverwritesPartition(t *testing.T) {
	svc, src, layout := newFixture(t)
	refs := []string{"https://t.me/lobelia4cosmetics"}
	if _, err := svc.Collect(context.Background(), refs); err != nil {
		t.Fatal(err)
	}
	src.posts["lobelia4cosmetics"] = []domain.Post{post(5, ""), post(4, "")}
	if _, err := svc.Collect(context.Background(), refs); err != nil {
		t.Fatal(err)
	}
	recs := readBatch(t, layout.BatchPath(svc.now(), "lobelia4cosmetics"))
	if len(recs) != 2 || recs[0].MessageID != 5 || recs[1].MessageID != 4 {
		t.Fatalf("partition should hold only the latest pull, got %+v", recs)
	}
	entries, _ := os.ReadDir(layout.PartitionDir(svc.now()))
	if len(entries) != 1 {
		t.Fatalf("expected a single batch file, got %d", len(entries))
	}
}

func TestCollect_RespectsLimit(t *testing.T) {
	svc, _, layout := newFixture(t)
	svc.Cfg.Limit = 2
	if _, err := svc.Collect(context.Background(), []string{"https://t.me/lobelia4cosmetics"}); err != nil {
		t.Fatal(err)
	}
	if n := len(readBatch(t, layout.BatchPath(svc.now(), "lobelia4cosmetics"))); n != 2 {
		t.Fatalf("records = %d", n)
	}
}

func TestCollect_Canceled(t *testing.T) {
	svc, _, _ := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := svc.Collect(ctx, []string{"https://t.me/lobelia4cosmetics"}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected canceled, got %v", err)
	}
}
