package history

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"os"
	"strings"
	"time"

	"github.com/antonholmquist/jason"
	"github.com/goccy/go-json"

	"github.com/aliceagent/alice-display/internal/display"
	"github.com/aliceagent/alice-display/internal/fs"
)

// fileDocument is the on-disk shape of the selection-history file.
type fileDocument struct {
	Selections []fileEntry `json:"selections"`
}

type fileEntry struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Timestamp string `json:"timestamp"`
	Weather   string `json:"weather"`
	TimeOfDay string `json:"time_of_day"`
	Activity  string `json:"activity"`
	RunID     string `json:"run_id,omitempty"`
}

// timestampLayouts are the accepted timestamp forms, tried in order.
// Older history files carry zone-less ISO-8601 timestamps, sometimes with
// microseconds or a space separator; those are read in the local zone.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
}

// FileStore keeps the selection history in a single JSON file:
//
//	{"selections": [{"id", "name", "timestamp", "weather", "time_of_day", "activity"}, ...]}
//
// Entries are ordered oldest first. A missing or unreadable file is treated
// as an empty history. Entries are decoded one at a time, so a malformed
// entry is skipped without discarding the rest. Every Record rewrites the whole file atomically.
// FileStore assumes a single writer; it takes no file lock.
type FileStore struct {
	path   string
	logger display.Logger
}

// NewFileStore creates a FileStore backed by path. The file is created on
// the first Record.
func NewFileStore(path string, logger display.Logger) *FileStore {
	if logger == nil {
		logger = display.NewNopLogger()
	}
	return &FileStore{path: path, logger: logger}
}

// Path returns the history file location.
func (s *FileStore) Path() string { return s.path }

// Record appends entry and rewrites the file truncated to the cap.
func (s *FileStore) Record(entry display.HistoryEntry) error {
	entries := append(s.load(), entry)
	if err := s.save(display.TruncateHistory(entries)); err != nil {
		return fmt.Errorf("saving selection history: %w", err)
	}
	return nil
}

// Entries returns the retained entries, oldest first.
func (s *FileStore) Entries() ([]display.HistoryEntry, error) {
	return s.load(), nil
}

// RecentIDs returns the ids and names recorded after since.
func (s *FileStore) RecentIDs(since time.Time) (map[string]bool, error) {
	return display.RecentKeys(s.load(), since), nil
}

// Close is a no-op; the file is not held open between calls.
func (s *FileStore) Close() error { return nil }

// load reads the history file. Missing and corrupt files both yield an
// empty history; corruption is logged. Entries that are not objects or that
// carry neither id nor name are dropped.
func (s *FileStore) load() []display.HistoryEntry {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			s.logger.Warn("reading selection history failed; starting empty", "path", s.path, "error", err)
		}
		return nil
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}

	doc, err := jason.NewObjectFromBytes(data)
	if err != nil {
		s.logger.Warn("selection history is corrupt; starting empty", "path", s.path, "error", err)
		return nil
	}
	items, err := doc.GetValueArray("selections")
	if err != nil {
		if v, verr := doc.GetValue("selections"); verr == nil && v.Null() == nil {
			return nil
		}
		s.logger.Warn("selection history has no selections list; starting empty", "path", s.path, "error", err)
		return nil
	}

	entries := make([]display.HistoryEntry, 0, len(items))
	for i, item := range items {
		obj, err := item.Object()
		if err != nil {
			s.logger.Warn("skipping malformed history entry", "path", s.path, "index", i)
			continue
		}
		e := decodeEntry(obj)
		if e.ID == "" && e.Name == "" {
			s.logger.Warn("skipping history entry with no id or name", "path", s.path, "index", i)
			continue
		}
		if e.Timestamp.IsZero() {
			// Kept so that Entries still lists it, but it never counts as recent.
			s.logger.Debug("unparseable history timestamp", "id", e.ID, "index", i)
		}
		entries = append(entries, e)
	}
	return entries
}

// decodeEntry reads one history entry. Ids may be numbers, and older
// writers used notion_id, title and time_period for the same fields.
func decodeEntry(obj *jason.Object) display.HistoryEntry {
	return display.HistoryEntry{
		ID:        textField(obj, "id", "notion_id"),
		Name:      textField(obj, "name", "title"),
		Timestamp: timestampField(obj, "timestamp"),
		Weather:   textField(obj, "weather"),
		TimeOfDay: textField(obj, "time_of_day", "time_period"),
		Activity:  textField(obj, "activity"),
		RunID:     textField(obj, "run_id"),
	}
}

// textField returns the first non-empty value among keys. Numbers are
// rendered in their JSON form; other types read as empty.
func textField(obj *jason.Object, keys ...string) string {
	for _, k := range keys {
		v, err := obj.GetValue(k)
		if err != nil {
			continue
		}
		if str, err := v.String(); err == nil {
			if str = strings.TrimSpace(str); str != "" {
				return str
			}
			continue
		}
		if n, err := v.Number(); err == nil {
			return n.String()
		}
	}
	return ""
}

// timestampField parses a string timestamp in any accepted layout, or a
// number of Unix seconds. Anything else is the zero time.
func timestampField(obj *jason.Object, key string) time.Time {
	v, err := obj.GetValue(key)
	if err != nil {
		return time.Time{}
	}
	if str, err := v.String(); err == nil {
		ts, _ := parseTimestamp(strings.TrimSpace(str))
		return ts
	}
	if f, err := v.Float64(); err == nil {
		sec, frac := math.Modf(f)
		return time.Unix(int64(sec), int64(frac*1e9)).UTC()
	}
	return time.Time{}
}

func (s *FileStore) save(entries []display.HistoryEntry) error {
	doc := fileDocument{Selections: make([]fileEntry, 0, len(entries))}
	for _, e := range entries {
		doc.Selections = append(doc.Selections, fileEntry{
			ID:        e.ID,
			Name:      e.Name,
			Timestamp: e.Timestamp.UTC().Format(time.RFC3339Nano),
			Weather:   e.Weather,
			TimeOfDay: e.TimeOfDay,
			Activity:  e.Activity,
			RunID:     e.RunID,
		})
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding history: %w", err)
	}
	return fs.WriteFileAtomic(s.path, data, 0644)
}

func parseTimestamp(s string) (time.Time, bool) {
	for _, layout := range timestampLayouts {
		if ts, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}
