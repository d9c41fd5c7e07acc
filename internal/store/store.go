// Package store persists parsed saves. PostgresStore is the primary backend
// and also answers profile similarity queries; SQLiteStore is the local
// single-file alternative.
package store

import (
	"context"
	"fmt"
	"strings"

	"save-parser/internal/country"
)

// Run is one parsed save ready to be persisted.
type Run struct {
	Name      string
	SaveHash  string
	Countries country.Countries
}

func (r Run) validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return fmt.Errorf("run name is required")
	}
	if r.Countries == nil {
		return fmt.Errorf("run countries are required")
	}
	return nil
}

// Store is implemented by every persistence backend.
type Store interface {
	SaveRun(ctx context.Context, run Run) (int64, error)
	Close() error
}

// CountryTotals is the persisted aggregate of one country.
type CountryTotals struct {
	Tag                    string
	Provinces              int
	TotalRuralPop          int32
	TotalUrbanPop          int32
	TotalWealthGrowth      float32
	TotalUrbanWealthGrowth float32
}

// provinceRow flattens a province with its position in the owner's list.
type provinceRow struct {
	tag string
	seq int
	p   *country.Province
}

func provinceRows(countries country.Countries) []provinceRow {
	var rows []provinceRow
	for _, tag := range country.SortedTags(countries) {
		for i, p := range countries[tag].Provinces {
			rows = append(rows, provinceRow{tag: tag, seq: i, p: p})
		}
	}
	return rows
}
