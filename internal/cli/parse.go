package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"save-parser/internal/country"
	"save-parser/internal/export"
	"save-parser/internal/filewalker"
	"save-parser/internal/parser"
	"save-parser/internal/worker"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// runParse handles the root command.
func (a *app) runParse(inputPath, outputPath, tsvPath string) error {
	countries, stats, err := parser.ParseFile(inputPath, parser.NewTable(a.cfg.ExitKeys...))
	if err != nil {
		return err
	}

	if err := export.WriteJSON(outputPath, countries); err != nil {
		return err
	}
	if tsvPath != "" {
		if err := export.WriteTSV(tsvPath, countries, a.names); err != nil {
			return err
		}
	}

	log.Info().
		Str("input", inputPath).
		Str("output", outputPath).
		Int("lines", stats.Lines).
		Int("provinces", stats.Provinces).
		Int("unowned", stats.Unowned).
		Int("undecodable_lines", stats.UndecodableLines).
		Bool("terminal_marker", stats.HitTerminalMarker).
		Int("countries", len(countries)).
		Msg("Parse complete")
	return nil
}

func (a *app) batchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "batch <input-dir> <output-dir>",
		Short: "Parse every save file under a directory, one JSON file per save",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			combined, _ := cmd.Flags().GetString("combined")
			return a.runBatch(args[0], args[1], combined)
		},
	}
	cmd.Flags().String("combined", "", "Also write all saves merged into one country map at this path")
	return cmd
}

type parsedSave struct {
	countries country.Countries
	stats     parser.Stats
}

// runBatch handles the `batch` command. Saves are parsed concurrently, one
// goroutine per file, and written in discovery order.
func (a *app) runBatch(inputDir, outputDir, combinedPath string) error {
	ctx, cancel := setupContext()
	defer cancel()

	entries, err := filewalker.NewWalker().Walk(inputDir)
	if err != nil {
		return fmt.Errorf("walk input directory: %w", err)
	}
	if len(entries) == 0 {
		log.Warn().Str("dir", inputDir).Msg("No save files found")
		return nil
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	table := parser.NewTable(a.cfg.ExitKeys...)
	pool := worker.NewPool(a.cfg.WorkerCount,
		func(ctx context.Context, entry filewalker.SaveEntry) (parsedSave, error) {
			countries, stats, err := parser.ParseFile(entry.Path, table)
			return parsedSave{countries: countries, stats: stats}, err
		},
	)
	tasks := pool.Execute(ctx, entries)

	combined := make(country.Countries)
	failed := 0
	for _, task := range tasks {
		if task.Err != nil {
			failed++
			log.Error().Err(task.Err).Str("file", task.Input.Path).Msg("Parse failed")
			continue
		}

		outPath := filepath.Join(outputDir, jsonName(task.Input.Rel))
		if err := os.MkdirAll(filepath.Dir(outPath), 0755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
		if err := export.WriteJSON(outPath, task.Result.countries); err != nil {
			return err
		}
		if combinedPath != "" {
			country.Merge(combined, task.Result.countries)
		}

		log.Info().
			Str("input", task.Input.Path).
			Str("output", outPath).
			Int("provinces", task.Result.stats.Provinces).
			Int("countries", len(task.Result.countries)).
			Msg("Save parsed")
	}

	if combinedPath != "" {
		if err := export.WriteJSON(combinedPath, combined); err != nil {
			return err
		}
	}

	log.Info().
		Int("files", len(entries)).
		Int("failed", failed).
		Str("output", outputDir).
		Msg("Batch complete")

	if failed > 0 {
		return fmt.Errorf("%d of %d saves failed", failed, len(entries))
	}
	return nil
}

// jsonName maps a save's relative path to its output file name.
func jsonName(rel string) string {
	return strings.TrimSuffix(filepath.FromSlash(rel), filepath.Ext(rel)) + ".json"
}
