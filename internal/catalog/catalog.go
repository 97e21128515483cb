// Package catalog loads the exported image catalog into display records.
//
// The catalog is a JSON document that is either a bare array of image
// entries or an object with an "images" key holding that array. Loading
// never fails: a missing, unreadable, malformed or undecryptable catalog
// yields an empty slice and a warning, and downstream code treats an empty
// catalog as "no eligible candidates".
package catalog

import (
	"bytes"
	"errors"
	"io"
	"os"
	"strings"

	"github.com/goccy/go-json"

	"github.com/aliceagent/alice-display/internal/display"
)

// SealedExt marks a catalog that was sealed with age.
const SealedExt = ".age"

// Decryptor opens a sealed catalog.
type Decryptor interface {
	Decrypt(r io.Reader, w io.Writer) error
}

type options struct {
	logger    display.Logger
	decryptor Decryptor
	urlMap    URLMap
}

// Option configures Load and Decode.
type Option func(*options)

// WithLogger sets the logger used for load warnings.
func WithLogger(l display.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithDecryptor sets the decryptor used for sealed (".age") catalogs.
func WithDecryptor(d Decryptor) Option {
	return func(o *options) { o.decryptor = d }
}

// WithURLMap enriches records that lack a CDN URL from m.
func WithURLMap(m URLMap) Option {
	return func(o *options) { o.urlMap = m }
}

func buildOptions(opts []Option) options {
	o := options{logger: display.NewNopLogger()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = display.NewNopLogger()
	}
	return o
}

// IsSealed reports whether path names a sealed catalog.
func IsSealed(path string) bool {
	return strings.HasSuffix(strings.ToLower(path), SealedExt)
}

// Load reads the catalog at path. Paths ending in ".age" are decrypted first.
func Load(path string, opts ...Option) []display.Record {
	o := buildOptions(opts)

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			o.logger.Warn("catalog not found", "path", path)
		} else {
			o.logger.Warn("reading catalog failed", "path", path, "error", err)
		}
		return nil
	}

	if IsSealed(path) {
		if o.decryptor == nil {
			o.logger.Warn("catalog is sealed but no key is available", "path", path)
			return nil
		}
		var plain bytes.Buffer
		if err := o.decryptor.Decrypt(bytes.NewReader(data), &plain); err != nil {
			o.logger.Warn("decrypting catalog failed", "path", path, "error", err)
			return nil
		}
		data = plain.Bytes()
	}

	records := decode(data, o)
	o.logger.Debug("catalog loaded", "path", path, "records", len(records))
	return records
}

// Decode parses a catalog document already in memory.
func Decode(data []byte, opts ...Option) []display.Record {
	return decode(data, buildOptions(opts))
}

func decode(data []byte, o options) []display.Record {
	elems, err := splitDocument(data)
	if err != nil {
		o.logger.Warn("catalog is malformed", "error", err)
		return nil
	}

	records := make([]display.Record, 0, len(elems))
	seen := make(map[string]bool, len(elems))
	for i, raw := range elems {
		r, err := parseRecord(raw)
		if err != nil {
			o.logger.Warn("skipping malformed catalog entry", "index", i, "error", err)
			continue
		}
		if r.Key() == "" {
			o.logger.Warn("skipping catalog entry with no id or name", "index", i)
			continue
		}
		if r.ID != "" {
			if seen[r.ID] {
				o.logger.Warn("skipping duplicate catalog id", "id", r.ID, "index", i)
				continue
			}
			seen[r.ID] = true
		}
		if o.urlMap != nil {
			o.urlMap.Enrich(&r)
		}
		records = append(records, r)
	}
	return records
}

// splitDocument returns the raw image entries of a catalog document.
func splitDocument(data []byte) ([]json.RawMessage, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, errors.New("empty document")
	}

	if trimmed[0] == '[' {
		var elems []json.RawMessage
		if err := json.Unmarshal(trimmed, &elems); err != nil {
			return nil, err
		}
		return elems, nil
	}

	var doc struct {
		Images []json.RawMessage `json:"images"`
	}
	if err := json.Unmarshal(trimmed, &doc); err != nil {
		return nil, err
	}
	return doc.Images, nil
}
