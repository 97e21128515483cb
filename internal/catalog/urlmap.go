package catalog

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-json"

	"github.com/aliceagent/alice-display/internal/display"
)

// URLMap maps an image file stem to its CDN URL.
type URLMap map[string]string

// LoadURLMap reads a JSON object of stem -> URL. A missing file is an empty
// map; a malformed one is an error so the caller can warn about it.
func LoadURLMap(path string) (URLMap, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return URLMap{}, nil
		}
		return nil, fmt.Errorf("reading url map: %w", err)
	}

	var m URLMap
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decoding url map %s: %w", path, err)
	}
	return m, nil
}

// Key returns the map key for r: the stem of its local path, else
// "NNN_Name_With_Underscores" built from its row number and name.
// It returns "" when neither is available.
func Key(r display.Record) string {
	if r.LocalPath != "" {
		base := filepath.Base(r.LocalPath)
		return strings.TrimSuffix(base, filepath.Ext(base))
	}
	if r.RowNumber > 0 && r.Name != "" {
		name := strings.NewReplacer(" ", "_", "-", "_").Replace(r.Name)
		return fmt.Sprintf("%03d_%s", r.RowNumber, name)
	}
	return ""
}

// Enrich sets r.CDNURL from the map when the record has none.
// It reports whether the record was changed.
func (m URLMap) Enrich(r *display.Record) bool {
	if r.HasCDNURL() {
		return false
	}
	key := Key(*r)
	if key == "" {
		return false
	}
	url, ok := m[key]
	if !ok || strings.TrimSpace(url) == "" {
		return false
	}
	r.CDNURL = url
	return true
}
