package cards

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// CatalogFile is the optional CSV of per-gem overrides inside the data directory.
const CatalogFile = "gems.csv"

// Entry overrides the display name and effect label for one gem id.
type Entry struct {
	ID     int
	Name   string
	Effect string
}

// Catalog holds local overrides on top of what the collection endpoint returns.
type Catalog map[int]Entry

// Effect returns the catalog label for id, or DefaultEffect when absent.
func (cat Catalog) Effect(id int) string {
	if e, ok := cat[id]; ok && e.Effect != "" {
		return e.Effect
	}
	return DefaultEffect(id)
}

// Apply fills in missing display names from the catalog.
func (cat Catalog) Apply(cs []Card) []Card {
	out := make([]Card, len(cs))
	for i, c := range cs {
		if e, ok := cat[c.ID]; ok && c.Metadata.Name == "" {
			c.Metadata.Name = e.Name
		}
		out[i] = c
	}
	return out
}

// LoadCatalog reads CatalogFile from dataDir. A missing file yields an empty catalog.
// Expected header: id,name,effect (extra columns are ignored).
func LoadCatalog(dataDir string) (Catalog, error) {
	path := filepath.Join(dataDir, CatalogFile)
	fp, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return Catalog{}, nil
	}
	if err != nil {
		return nil, err
	}
	defer fp.Close()

	r := csv.NewReader(fp)
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}
	if len(rows) < 1 {
		return nil, fmt.Errorf("csv %s has no header", path)
	}
	cols := map[string]int{}
	for i, h := range rows[0] {
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}
	if _, ok := cols["id"]; !ok {
		return nil, fmt.Errorf("csv %s has no id column", path)
	}

	get := func(row []string, name string) string {
		if idx, ok := cols[name]; ok && idx < len(row) {
			return strings.TrimSpace(row[idx])
		}
		return ""
	}

	out := Catalog{}
	for n, row := range rows[1:] {
		id, err := strconv.Atoi(get(row, "id"))
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("csv %s row %d: bad id %q", path, n+2, get(row, "id"))
		}
		out[id] = Entry{ID: id, Name: get(row, "name"), Effect: get(row, "effect")}
	}
	return out, nil
}
