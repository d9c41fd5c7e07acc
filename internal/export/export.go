package export

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"save-parser/internal/country"
	"save-parser/internal/tags"

	"github.com/rs/zerolog/log"
)

// WriteJSON writes the country map to outputPath. The file is replaced
// atomically, so a failed run never leaves partial output behind.
func WriteJSON(outputPath string, countries country.Countries) error {
	return writeAtomic(outputPath, func(w io.Writer) error {
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		encoder.SetEscapeHTML(false)
		if err := encoder.Encode(countries); err != nil {
			return fmt.Errorf("encode JSON: %w", err)
		}
		return nil
	})
}

// ReadJSON loads a country map previously written by WriteJSON.
func ReadJSON(path string) (country.Countries, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open JSON file: %w", err)
	}
	defer f.Close()

	countries := make(country.Countries)
	if err := json.NewDecoder(f).Decode(&countries); err != nil {
		return nil, fmt.Errorf("decode JSON: %w", err)
	}
	return countries, nil
}

// WriteTSV writes one summary row per country, ordered by tag.
func WriteTSV(outputPath string, countries country.Countries, names *tags.Table) error {
	return writeAtomic(outputPath, func(w io.Writer) error {
		if _, err := fmt.Fprintln(w, "tag\tname\tprovinces\ttotal_rural_pop\ttotal_urban_pop\ttotal_wealth_growth\ttotal_urban_wealth_growth"); err != nil {
			return err
		}
		for _, tag := range country.SortedTags(countries) {
			c := countries[tag]
			_, err := fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\t%g\t%g\n",
				escapeTSV(c.Tag),
				escapeTSV(names.Name(c.Tag)),
				len(c.Provinces),
				c.TotalRuralPop,
				c.TotalUrbanPop,
				c.TotalWealthGrowth,
				c.TotalUrbanWealthGrowth,
			)
			if err != nil {
				return err
			}
		}
		return nil
	})
}

func writeAtomic(outputPath string, write func(io.Writer) error) error {
	dir := filepath.Dir(outputPath)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(outputPath)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create output file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if err := write(tmp); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", outputPath, err)
	}
	if err := tmp.Chmod(0644); err != nil {
		tmp.Close()
		return fmt.Errorf("chmod output file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close output file: %w", err)
	}
	if err := os.Rename(tmpPath, outputPath); err != nil {
		return fmt.Errorf("replace output file: %w", err)
	}

	log.Debug().Str("path", outputPath).Msg("Wrote output file")
	return nil
}

// escapeTSV replaces tabs and newlines in a string for TSV safety.
func escapeTSV(s string) string {
	s = strings.ReplaceAll(s, "\t", "\\t")
	s = strings.ReplaceAll(s, "\n", "\\n")
	s = strings.ReplaceAll(s, "\r", "\\r")
	return s
}
