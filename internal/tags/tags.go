// Package tags maps country tags to human-readable names. The table is only
// used for display; parsing never depends on it.
package tags

import (
	_ "embed"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
)

//go:embed tags.csv
var rawTags string

// Table is an immutable tag to display-name lookup.
type Table struct {
	names map[string]string
}

// Load reads "tag,displayName" rows.
func Load(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = 2
	cr.TrimLeadingSpace = true

	names := make(map[string]string)
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read tag table: %w", err)
		}
		tag := strings.TrimSpace(record[0])
		if tag == "" {
			return nil, fmt.Errorf("read tag table: empty tag for %q", record[1])
		}
		names[tag] = strings.TrimSpace(record[1])
	}
	return &Table{names: names}, nil
}

var (
	defaultOnce  sync.Once
	defaultTable *Table
	defaultErr   error
)

// Default returns the table bundled with the binary. It is loaded once.
func Default() (*Table, error) {
	defaultOnce.Do(func() {
		defaultTable, defaultErr = Load(strings.NewReader(rawTags))
	})
	return defaultTable, defaultErr
}

// Lookup returns the display name of tag.
func (t *Table) Lookup(tag string) (string, bool) {
	if t == nil {
		return "", false
	}
	name, ok := t.names[tag]
	return name, ok
}

// Name returns the display name of tag, or the tag itself when unknown.
func (t *Table) Name(tag string) string {
	if name, ok := t.Lookup(tag); ok {
		return name
	}
	return tag
}

// Label is the display form used in reports.
func (t *Table) Label(tag string) string {
	return "Country " + t.Name(tag)
}

// Len returns the number of known tags.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.names)
}
