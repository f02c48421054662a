// Package library implements Track Database Interface (B): the opaque
// resolve/exists/get-pref/list/search surface the queue engine (C) and
// protocol engine (D) consume, adapted from the teacher's
// internal/playlist track scanner (dhowden/tag metadata extraction,
// SHA-256 checksums) onto DisOrder's path-identified track model.
package library

import (
	"crypto/sha256"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dhowden/tag"
)

// Track describes one audio file in the library, keyed by its canonical
// path (spec.md §3 "Track identifier").
type Track struct {
	Path     string `json:"path"`
	Title    string `json:"title"`
	Artist   string `json:"artist,omitempty"`
	Album    string `json:"album,omitempty"`
	Genre    string `json:"genre,omitempty"`
	Year     int    `json:"year,omitempty"`
	TrackNum int    `json:"trackNum,omitempty"`
	Duration int    `json:"duration"`
	Format   string `json:"format"`
	Checksum string `json:"checksum"`
	Added    time.Time `json:"added"`
}

// SupportedFormats lists the audio file extensions DisOrder recognises
// when scanning the library root.
var SupportedFormats = []string{".mp3", ".wav", ".flac", ".aac", ".ogg", ".opus"}

// IsSupportedFormat reports whether ext (including the leading dot) names
// a recognised audio format.
func IsSupportedFormat(ext string) bool {
	lower := strings.ToLower(ext)
	for _, f := range SupportedFormats {
		if lower == f {
			return true
		}
	}
	return false
}

// newTrackFromFile builds a Track from a file on disk, reading tag
// metadata where available and falling back to the filename.
func newTrackFromFile(root, path string) (*Track, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	rel, err := filepath.Rel(root, abs)
	if err != nil {
		rel = abs
	}

	ext := strings.ToLower(filepath.Ext(abs))
	filename := filepath.Base(abs)
	title := strings.TrimSuffix(filename, filepath.Ext(filename))

	checksum, err := computeChecksum(abs)
	if err != nil {
		return nil, fmt.Errorf("compute checksum for %s: %w", abs, err)
	}

	t := &Track{
		Path:     filepath.ToSlash(rel),
		Title:    title,
		Format:   strings.TrimPrefix(ext, "."),
		Checksum: checksum,
		Added:    time.Now(),
	}
	extractMetadata(t, abs)
	return t, nil
}

func computeChecksum(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return fmt.Sprintf("%x", h.Sum(nil)), nil
}

func extractMetadata(t *Track, path string) {
	f, err := os.Open(path)
	if err != nil {
		slog.Warn("library: could not open file for metadata", "path", path, "error", err)
		return
	}
	defer f.Close()

	m, err := tag.ReadFrom(f)
	if err != nil {
		slog.Debug("library: could not read tags", "path", path, "error", err)
		return
	}
	if m.Title() != "" {
		t.Title = m.Title()
	}
	if m.Artist() != "" {
		t.Artist = m.Artist()
	}
	if m.Album() != "" {
		t.Album = m.Album()
	}
	if m.Genre() != "" {
		t.Genre = m.Genre()
	}
	if m.Year() != 0 {
		t.Year = m.Year()
	}
	if num, _ := m.Track(); num != 0 {
		t.TrackNum = num
	}
}
