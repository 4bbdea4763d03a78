package tgpreview

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"telewarehouse/internal/platform/logger"
	strs "telewarehouse/internal/platform/strings"
	"telewarehouse/internal/services/collector/domain"
)

var bgURL = regexp.MustCompile(`background-image:\s*url\(['"]?([^'")]+)['"]?\)`)

// parseChannel reads the channel header, ok is false on non-preview pages
func parseChannel(doc *goquery.Document) (domain.Channel, bool) {
	info := doc.Find(".tgme_channel_info").First()
	if info.Length() == 0 {
		return domain.Channel{}, false
	}
	title := strings.TrimSpace(info.Find(".tgme_channel_info_header_title").First().Text())
	user := strings.TrimSpace(info.Find(".tgme_channel_info_header_username").First().Text())
	user = strings.TrimPrefix(user, "@")
	if title == "" && user == "" {
		return domain.Channel{}, false
	}
	return domain.Channel{Username: user, Title: title}, true
}

// parsePosts extracts every message widget; widgets without id are skipped
func parsePosts(doc *goquery.Document, log logger.Logger) []domain.Post {
	var out []domain.Post
	doc.Find(".tgme_widget_message[data-post]").Each(func(_ int, sel *goquery.Selection) {
		dp, _ := sel.Attr("data-post")
		id, ok := postID(dp)
		if !ok {
			log.Debug().Str("data_post", dp).Msg("tgpreview: skip widget without id")
			return
		}
		p := domain.Post{ID: id}

		if dt, ok := sel.Find(".tgme_widget_message_date time[datetime]").First().Attr("datetime"); ok {
			if t, err := time.Parse(time.RFC3339, dt); err == nil {
				p.Date = t.UTC()
			}
		}
		p.Text = strs.Ptr(sel.Find(".tgme_widget_message_text").First().Text())
		if v, ok := parseCount(sel.Find(".tgme_widget_message_views").First().Text()); ok {
			p.Views = &v
		}
		if style, ok := sel.Find(".tgme_widget_message_photo_wrap").First().Attr("style"); ok {
			if m := bgURL.FindStringSubmatch(style); len(m) == 2 {
				p.Photo = &domain.Photo{URL: m[1]}
			}
		}
		out = append(out, p)
	})
	return out
}

// postID parses "<channel>/<id>"
func postID(dataPost string) (int64, bool) {
	i := strings.LastIndexByte(dataPost, '/')
	if i < 0 {
		return 0, false
	}
	id, err := strconv.ParseInt(dataPost[i+1:], 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// parseCount reads preview counters like "987", "1.2K", "3M"
func parseCount(s string) (int64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	mult := 1.0
	switch s[len(s)-1] {
	case 'K', 'k':
		mult, s = 1e3, s[:len(s)-1]
	case 'M', 'm':
		mult, s = 1e6, s[:len(s)-1]
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f < 0 {
		return 0, false
	}
	return int64(f*mult + 0.5), true
}
