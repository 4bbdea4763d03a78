// Package domain holds the collector data shapes and the remote source port
package domain

import (
	"strings"
	"time"
)

// DateLayout is the wire layout for post dates, ISO-8601 with numeric offset
const DateLayout = "2006-01-02T15:04:05-07:00"

// DefaultChannels is the channel list used when none is configured
var DefaultChannels = []string{
	"https://t.me/lobelia4cosmetics",
	"https://t.me/tikvahpharma",
	"chemedtelegram",
}

// Channel is a resolved channel
type Channel struct {
	// Ref is the configured reference it was resolved from
	Ref      string
	Username string
	Title    string
}

// Name is the canonical channel name: username when present, else title
func (c Channel) Name() string {
	if u := strings.TrimSpace(c.Username); u != "" {
		return u
	}
	return strings.TrimSpace(c.Title)
}

// Photo is an opaque reference to a post attachment the source can download
type Photo struct {
	URL string
}

// Post is one message as produced by the source
type Post struct {
	ID       int64
	Date     time.Time
	Text     *string
	Views    *int64
	Forwards *int64
	Photo    *Photo
}

// Record is the staged shape of a post, one element of a batch file
// field order is the batch file order
type Record struct {
	MessageID int64   `json:"message_id"`
	Date      string  `json:"date"`
	Text      *string `json:"text"`
	Views     *int64  `json:"views"`
	Forwards  *int64  `json:"forwards"`
	ImagePath *string `json:"image_path"`
	Channel   string  `json:"channel"`
}

// NewRecord stages p for channel, imagePath is nil when nothing was saved
func NewRecord(channel string, p Post, imagePath *string) Record {
	return Record{
		MessageID: p.ID,
		Date:      p.Date.UTC().Format(DateLayout),
		Text:      p.Text,
		Views:     p.Views,
		Forwards:  p.Forwards,
		ImagePath: imagePath,
		Channel:   channel,
	}
}

// ChannelResult summarizes one channel pass
type ChannelResult struct {
	Ref        string
	Channel    string
	Posts      int
	Images     int
	ImageFails int
	BatchPath  string
	Err        error
}

// Report summarizes one collect run
type Report struct {
	Day      time.Time
	Channels []ChannelResult
}

// Succeeded counts channels whose batch was written
func (r Report) Succeeded() int {
	n := 0
	for _, c := range r.Channels {
		if c.Err == nil {
			n++
		}
	}
	return n
}

// Handle extracts the bare channel handle from a configured reference
// accepts https://t.me/<name>, t.me/s/<name>, @<name> or <name>
func Handle(ref string) (string, bool) {
	s := strings.TrimSpace(ref)
	for _, p := range []string{"https://", "http://"} {
		s = strings.TrimPrefix(s, p)
	}
	s = strings.TrimPrefix(s, "www.")
	s = strings.TrimPrefix(s, "t.me/")
	s = strings.TrimPrefix(s, "s/")
	s = strings.TrimPrefix(s, "@")
	s = strings.TrimSuffix(s, "/")
	if s == "" || len(s) > 64 {
		return "", false
	}
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
		default:
			return "", false
		}
	}
	return s, true
}
