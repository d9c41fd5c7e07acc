// Package report ranks countries of a parsed save and renders them as a
// table.
package report

import (
	"fmt"
	"io"
	"sort"
	"text/tabwriter"

	"save-parser/internal/country"
	"save-parser/internal/tags"
	"save-parser/internal/textutil"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// SortKey selects the ranking metric.
type SortKey string

const (
	ByUrbanPop     SortKey = "urban"
	ByUrbanization SortKey = "urbanization"
	ByWealthGrowth SortKey = "wealth"
	ByWealthPerPop SortKey = "wealth-per-pop"
)

// DefaultMinPop drops countries too small for per-capita figures to mean much.
const DefaultMinPop = 100000

// SortKeys lists the accepted keys in help order.
var SortKeys = []SortKey{ByUrbanPop, ByUrbanization, ByWealthGrowth, ByWealthPerPop}

// ParseSortKey validates a user supplied key.
func ParseSortKey(s string) (SortKey, error) {
	for _, k := range SortKeys {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown sort key %q (want one of %v)", s, SortKeys)
}

func (k SortKey) metric(c *country.Country) float64 {
	switch k {
	case ByUrbanization:
		return c.Urbanization()
	case ByWealthGrowth:
		return float64(c.TotalWealthGrowth)
	case ByWealthPerPop:
		return c.WealthPerThousand()
	default:
		return float64(c.TotalUrbanPop)
	}
}

// Options control Rank.
type Options struct {
	Key    SortKey
	MinPop int64
	Limit  int
}

// Rank returns the countries with more than MinPop inhabitants, best first.
// Equal metrics are ordered by tag.
func Rank(countries country.Countries, opts Options) []*country.Country {
	rows := make([]*country.Country, 0, len(countries))
	for _, tag := range country.SortedTags(countries) {
		c := countries[tag]
		if c.TotalPop() <= opts.MinPop {
			continue
		}
		rows = append(rows, c)
	}

	sort.SliceStable(rows, func(i, j int) bool {
		return opts.Key.metric(rows[i]) > opts.Key.metric(rows[j])
	})

	if opts.Limit > 0 && len(rows) > opts.Limit {
		rows = rows[:opts.Limit]
	}
	return rows
}

// Write renders rows as an aligned table.
func Write(w io.Writer, rows []*country.Country, names *tags.Table) error {
	p := message.NewPrinter(language.English)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)

	p.Fprintf(tw, "#\tTag\tCountry\tProvinces\tRural pop\tUrban pop\tUrbanization\tWealth growth\tPer 1000\t\n")
	for i, c := range rows {
		p.Fprintf(tw, "%d\t%s\t%s\t%d\t%d\t%d\t%.1f%%\t%.2f\t%.3f\t\n",
			i+1,
			c.Tag,
			textutil.Truncate(names.Name(c.Tag), 24),
			len(c.Provinces),
			c.TotalRuralPop,
			c.TotalUrbanPop,
			100*c.Urbanization(),
			c.TotalWealthGrowth,
			c.WealthPerThousand(),
		)
	}
	return tw.Flush()
}
