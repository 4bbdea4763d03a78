// Package tgpreview reads public channels through the t.me/s web preview
// no session or API credentials are involved
package tgpreview

import (
	"context"
	"io"
	"iter"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"telewarehouse/internal/adapters/httpc"
	perr "telewarehouse/internal/platform/errors"
	"telewarehouse/internal/platform/logger"
	"telewarehouse/internal/platform/staging"
	"telewarehouse/internal/services/collector/domain"
)

const (
	baseURLDefault = "https://t.me"
	defaultUA      = "Mozilla/5.0 (compatible; telewarehouse/1.0)"
	maxPages       = 200
)

// Options configures the Source
type Options struct {
	BaseURL    string
	UserAgent  string
	Timeout    time.Duration
	MaxRetries int
	RetryBase  time.Duration
	RPS        float64
	Burst      int
}

// Source implements domain.Source over the preview pages
type Source struct {
	http *httpc.Client
	base *url.URL
	log  logger.Logger
}

var _ domain.Source = (*Source)(nil)

// New creates a Source with sane defaults
func New(o Options) (*Source, error) {
	if o.BaseURL == "" {
		o.BaseURL = baseURLDefault
	}
	if o.UserAgent == "" {
		o.UserAgent = defaultUA
	}
	base, err := url.Parse(strings.TrimSuffix(o.BaseURL, "/"))
	if err != nil || !base.IsAbs() {
		return nil, perr.InvalidArgf("tgpreview: invalid base url %q", o.BaseURL)
	}
	return &Source{
		http: httpc.New(httpc.Options{
			Name:       "tgpreview",
			UserAgent:  o.UserAgent,
			Timeout:    o.Timeout,
			MaxRetries: o.MaxRetries,
			RetryBase:  o.RetryBase,
			RPS:        o.RPS,
			Burst:      o.Burst,
		}),
		base: base,
		log:  *logger.Named("tgpreview"),
	}, nil
}

// Resolve loads the channel header and returns username and title
func (s *Source) Resolve(ctx context.Context, ref string) (domain.Channel, error) {
	handle, ok := domain.Handle(ref)
	if !ok {
		return domain.Channel{}, perr.InvalidArgf("tgpreview: bad channel reference %q", ref)
	}
	doc, err := s.page(ctx, handle, 0)
	if httpc.IsStatus(err, http.StatusNotFound) {
		return domain.Channel{}, perr.NotFoundf("tgpreview: channel %q does not exist", handle)
	}
	if err != nil {
		return domain.Channel{}, err
	}
	ch, ok := parseChannel(doc)
	if !ok {
		return domain.Channel{}, perr.NotFoundf("tgpreview: channel %q has no public preview", handle)
	}
	ch.Ref = ref
	return ch, nil
}

// Posts pages backwards with ?before= until limit posts were yielded
func (s *Source) Posts(ctx context.Context, ch domain.Channel, limit int) iter.Seq2[domain.Post, error] {
	return func(yield func(domain.Post, error) bool) {
		if limit <= 0 {
			return
		}
		handle := ch.Username
		if handle == "" {
			handle, _ = domain.Handle(ch.Ref)
		}
		seen := 0
		var before int64
		for range maxPages {
			doc, err := s.page(ctx, handle, before)
			if err != nil {
				yield(domain.Post{}, err)
				return
			}
			posts := parsePosts(doc, s.log)
			// pages list oldest first
			slices.SortFunc(posts, func(a, b domain.Post) int { return cmpDesc(a.ID, b.ID) })

			progressed := false
			for _, p := range posts {
				if before != 0 && p.ID >= before {
					continue
				}
				progressed = true
				if !yield(p, nil) {
					return
				}
				seen++
				if seen >= limit {
					return
				}
				before = p.ID
			}
			if !progressed || before <= 1 {
				return
			}
		}
	}
}

// Download fetches the photo and writes it atomically to dest
func (s *Source) Download(ctx context.Context, photo domain.Photo, dest string) (string, error) {
	if photo.URL == "" {
		return "", perr.InvalidArgf("tgpreview: photo without url")
	}
	resp, err := s.http.Get(ctx, photo.URL)
	if err != nil {
		return "", err
	}
	defer func() {
		if cerr := httpc.DrainAndClose(resp.Body); cerr != nil {
			s.log.Error().Err(cerr).Msg("error closing body")
		}
	}()
	if err := staging.WriteAtomic(dest, func(w io.Writer) error {
		_, err := io.Copy(w, resp.Body)
		return err
	}); err != nil {
		return "", perr.Wrapf(err, perr.ErrorCodeIO, "tgpreview: save %s", dest)
	}
	return dest, nil
}

func (s *Source) page(ctx context.Context, handle string, before int64) (*goquery.Document, error) {
	u := *s.base
	u.Path = strings.TrimSuffix(u.Path, "/") + "/s/" + handle
	if before > 0 {
		q := url.Values{}
		q.Set("before", strconv.FormatInt(before, 10))
		u.RawQuery = q.Encode()
	}
	resp, err := s.http.Get(ctx, u.String())
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := httpc.DrainAndClose(resp.Body); cerr != nil {
			s.log.Error().Err(cerr).Msg("error closing body")
		}
	}()
	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, perr.Wrapf(err, perr.ErrorCodeMalformed, "tgpreview: parse %s", u.Path)
	}
	return doc, nil
}

func cmpDesc(a, b int64) int {
	switch {
	case a > b:
		return -1
	case a < b:
		return 1
	}
	return 0
}
