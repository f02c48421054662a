package library

import (
	"fmt"
	"io/fs"
	"math/rand"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

// Interface is the opaque Track Database Interface (B) the queue engine
// (C) and protocol engine (D) consume: resolve/exists/get-pref/list/
// search, plus the random-selection and rescan operations the queue
// engine's selection algorithm needs.
type Interface interface {
	Resolve(alias string) (string, error)
	Exists(path string) bool
	Get(path string) (*Track, bool)
	List() []*Track
	Search(terms string) []*Track

	GetPref(path, key string) (string, bool)
	SetPref(path, key, value string) error
	UnsetPref(path, key string) error

	GetGlobalPref(key string) (string, bool)
	SetGlobalPref(key, value string)
	UnsetGlobalPref(key string)

	Random(now time.Time, cfg RandomConfig, recentlyPlayed func(path string) time.Time) (*Track, bool)
	Rescan(now time.Time) (added int, removed int, err error)

	Count() int
}

// RandomConfig parameterises the §4.C selection algorithm's random pick:
// tracks played within ReplayMin are excluded outright; tracks added
// within NewBiasAge are NewBias times as likely to be picked, up to
// NewMax such tracks participating in the bias at once.
type RandomConfig struct {
	ReplayMin  time.Duration
	NewBiasAge time.Duration
	NewBias    float64
	NewMax     int
	Tag        string // optional: restrict to tracks carrying this "tags" pref
}

// Library is the in-memory, disk-scanned implementation of Interface.
type Library struct {
	mu          sync.RWMutex
	root        string
	tracks      map[string]*Track
	aliases     map[string]string
	prefs       map[string]map[string]string
	globalPrefs map[string]string
	rng         *rand.Rand
}

// New creates a Library rooted at root. Call Rescan to populate it.
func New(root string) *Library {
	return &Library{
		root:        root,
		tracks:      make(map[string]*Track),
		aliases:     make(map[string]string),
		prefs:       make(map[string]map[string]string),
		globalPrefs: make(map[string]string),
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Resolve converts an alias to its canonical path, per spec.md §3. A path
// already canonical resolves to itself.
func (l *Library) Resolve(alias string) (string, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if _, ok := l.tracks[alias]; ok {
		return alias, nil
	}
	if canon, ok := l.aliases[alias]; ok {
		return canon, nil
	}
	return "", fmt.Errorf("no such track: %s", alias)
}

// Exists reports whether path names a track currently in the library.
func (l *Library) Exists(path string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.tracks[path]
	return ok
}

// Get returns the track at path, if any.
func (l *Library) Get(path string) (*Track, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	t, ok := l.tracks[path]
	return t, ok
}

// List returns every track, sorted by path for deterministic output.
func (l *Library) List() []*Track {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]*Track, 0, len(l.tracks))
	for _, t := range l.tracks {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

// Count returns the number of tracks in the library.
func (l *Library) Count() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.tracks)
}

// Search returns tracks whose path, title, artist, or album contains
// every whitespace-separated term in terms, case-insensitively.
func (l *Library) Search(terms string) []*Track {
	words := strings.Fields(strings.ToLower(terms))
	l.mu.RLock()
	defer l.mu.RUnlock()

	var out []*Track
	for _, t := range l.tracks {
		hay := strings.ToLower(t.Path + " " + t.Title + " " + t.Artist + " " + t.Album)
		matched := true
		for _, w := range words {
			if !strings.Contains(hay, w) {
				matched = false
				break
			}
		}
		if matched {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

// GetPref returns a per-track preference value.
func (l *Library) GetPref(path, key string) (string, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	m, ok := l.prefs[path]
	if !ok {
		return "", false
	}
	v, ok := m[key]
	return v, ok
}

// SetPref sets a per-track preference. Returns an error if path does not
// name a known track.
func (l *Library) SetPref(path, key, value string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.tracks[path]; !ok {
		return fmt.Errorf("no such track: %s", path)
	}
	m, ok := l.prefs[path]
	if !ok {
		m = make(map[string]string)
		l.prefs[path] = m
	}
	m[key] = value
	return nil
}

// UnsetPref removes a per-track preference.
func (l *Library) UnsetPref(path, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.tracks[path]; !ok {
		return fmt.Errorf("no such track: %s", path)
	}
	if m, ok := l.prefs[path]; ok {
		delete(m, key)
	}
	return nil
}

// GetGlobalPref returns a server-global preference.
func (l *Library) GetGlobalPref(key string) (string, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	v, ok := l.globalPrefs[key]
	return v, ok
}

// SetGlobalPref sets a server-global preference.
func (l *Library) SetGlobalPref(key, value string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.globalPrefs[key] = value
}

// UnsetGlobalPref removes a server-global preference.
func (l *Library) UnsetGlobalPref(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.globalPrefs, key)
}

// Rescan walks the library root, adding new tracks and dropping ones that
// no longer exist on disk. The rescan command reaches it through
// queue.Engine.Rescan, which calls it directly on the reactor goroutine;
// no child process is involved.
func (l *Library) Rescan(now time.Time) (added int, removed int, err error) {
	found := make(map[string]*Track)
	err = filepath.WalkDir(l.root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			return nil
		}
		if !IsSupportedFormat(filepath.Ext(path)) {
			return nil
		}
		t, terr := newTrackFromFile(l.root, path)
		if terr != nil {
			return nil // skip unreadable files, don't abort the whole scan
		}
		found[t.Path] = t
		return nil
	})
	if err != nil {
		return 0, 0, fmt.Errorf("rescan %s: %w", l.root, err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	for path, t := range found {
		if _, ok := l.tracks[path]; !ok {
			t.Added = now
			added++
		} else {
			t.Added = l.tracks[path].Added
		}
		l.tracks[path] = t
	}
	for path := range l.tracks {
		if _, ok := found[path]; !ok {
			delete(l.tracks, path)
			delete(l.prefs, path)
			removed++
		}
	}
	return added, removed, nil
}

// Random picks a track at random for the queue engine's selection
// algorithm (spec.md §4.C step 2), honouring replay-min, new-bias-age,
// new-bias and an optional tag filter. recentlyPlayed(path) should
// return the last time path finished playing (zero value if never).
func (l *Library) Random(now time.Time, cfg RandomConfig, recentlyPlayed func(path string) time.Time) (*Track, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	type candidate struct {
		track  *Track
		weight float64
	}
	var candidates []candidate
	newCount := 0

	for _, t := range l.tracks {
		if cfg.Tag != "" {
			if tags, ok := l.prefs[t.Path]["tags"]; !ok || !strings.Contains(tags, cfg.Tag) {
				continue
			}
		}
		if cfg.ReplayMin > 0 {
			if last := recentlyPlayed(t.Path); !last.IsZero() && now.Sub(last) < cfg.ReplayMin {
				continue
			}
		}
		weight := 1.0
		if cfg.NewBiasAge > 0 && cfg.NewBias > 0 && now.Sub(t.Added) < cfg.NewBiasAge {
			if cfg.NewMax <= 0 || newCount < cfg.NewMax {
				weight = cfg.NewBias
				newCount++
			}
		}
		candidates = append(candidates, candidate{track: t, weight: weight})
	}
	if len(candidates) == 0 {
		return nil, false
	}

	var total float64
	for _, c := range candidates {
		total += c.weight
	}
	pick := l.rng.Float64() * total
	for _, c := range candidates {
		if pick < c.weight {
			return c.track, true
		}
		pick -= c.weight
	}
	return candidates[len(candidates)-1].track, true
}
