// Package staging owns the on-disk layout shared by the pipeline stages
//
//	<root>/messages/<YYYY-MM-DD>/<channel>.json
//	<root>/images/<channel>/<message_id>.jpg
//	<root>/detections.csv
package staging

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"
)

const (
	// DateLayout names message partitions
	DateLayout = "2006-01-02"

	messagesDir    = "messages"
	imagesDir      = "images"
	detectionsFile = "detections.csv"

	// ImageExt is the only extension the inference stage picks up
	ImageExt = ".jpg"
	batchExt = ".json"
)

// Layout resolves staging paths under a root directory
type Layout struct {
	Root string
}

// New returns a Layout rooted at root
func New(root string) Layout { return Layout{Root: filepath.Clean(root)} }

// MessagesDir is the parent of all date partitions
func (l Layout) MessagesDir() string { return filepath.Join(l.Root, messagesDir) }

// PartitionDir is the directory for one collection date
func (l Layout) PartitionDir(day time.Time) string {
	return filepath.Join(l.MessagesDir(), day.Format(DateLayout))
}

// BatchPath is the batch file for one (date, channel) partition key
func (l Layout) BatchPath(day time.Time, channel string) string {
	return filepath.Join(l.PartitionDir(day), SafeName(channel)+batchExt)
}

// ImagesDir is the parent of all per-channel image directories
func (l Layout) ImagesDir() string { return filepath.Join(l.Root, imagesDir) }

// ChannelImagesDir is the image directory for one channel
func (l Layout) ChannelImagesDir(channel string) string {
	return filepath.Join(l.ImagesDir(), SafeName(channel))
}

// ImagePath is where the image attached to messageID is stored
func (l Layout) ImagePath(channel string, messageID int64) string {
	return filepath.Join(l.ChannelImagesDir(channel), strconv.FormatInt(messageID, 10)+ImageExt)
}

// DetectionsPath is the flat inference result table
func (l Layout) DetectionsPath() string { return filepath.Join(l.Root, detectionsFile) }

// EnsureRoots creates the messages and images roots, idempotent
func (l Layout) EnsureRoots() error {
	for _, d := range []string{l.MessagesDir(), l.ImagesDir()} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return fmt.Errorf("staging: mkdir %s: %w", d, err)
		}
	}
	return nil
}

// IsBatchFile reports whether name looks like a batch file
func IsBatchFile(name string) bool { return strings.HasSuffix(name, batchExt) }

// IsImageFile reports whether name is a picked up image
func IsImageFile(name string) bool { return strings.HasSuffix(name, ImageExt) }

// DirExists distinguishes a missing directory from an unreadable one
func DirExists(path string) (bool, error) {
	fi, err := os.Stat(path)
	switch {
	case err == nil:
		if !fi.IsDir() {
			return false, fmt.Errorf("staging: %s is not a directory", path)
		}
		return true, nil
	case os.IsNotExist(err):
		return false, nil
	default:
		return false, err
	}
}

// SafeName folds a channel name into a single path element
// unicode is NFC normalized and separators are replaced
func SafeName(s string) string {
	s = norm.NFC.String(strings.TrimSpace(s))
	s = strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', 0, ':':
			return '_'
		}
		return r
	}, s)
	if s == "" || s == "." || s == ".." {
		return "_"
	}
	return s
}
