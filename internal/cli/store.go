package cli

import (
	"fmt"
	"path/filepath"
	"strconv"
	"text/tabwriter"

	"save-parser/internal/country"
	"save-parser/internal/export"
	"save-parser/internal/graph"
	"save-parser/internal/parser"
	"save-parser/internal/report"
	"save-parser/internal/store"
	"save-parser/internal/textutil"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func (a *app) reportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report <json-file>",
		Short: "Rank the countries of a parsed JSON file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sortFlag, _ := cmd.Flags().GetString("sort")
			minPop, _ := cmd.Flags().GetInt64("min-pop")
			limit, _ := cmd.Flags().GetInt("limit")

			key, err := report.ParseSortKey(sortFlag)
			if err != nil {
				return err
			}
			countries, err := export.ReadJSON(args[0])
			if err != nil {
				return err
			}
			rows := report.Rank(countries, report.Options{Key: key, MinPop: minPop, Limit: limit})
			return report.Write(cmd.OutOrStdout(), rows, a.names)
		},
	}
	cmd.Flags().String("sort", string(report.ByUrbanPop), fmt.Sprintf("Ranking metric %v", report.SortKeys))
	cmd.Flags().Int64("min-pop", report.DefaultMinPop, "Only rank countries with more inhabitants than this")
	cmd.Flags().Int("limit", 20, "Maximum rows to print (0 = all)")
	return cmd
}

func (a *app) pushCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "push <save-file>",
		Short: "Parse a save file and store its country totals",
		Long: `Parses a save file and stores the run in PostgreSQL (DATABASE_URL) or,
with --sqlite, in a local SQLite file. --graph also writes the ownership graph to Neo4j.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sqlitePath, _ := cmd.Flags().GetString("sqlite")
			withGraph, _ := cmd.Flags().GetBool("graph")
			return a.runPush(cmd, args[0], sqlitePath, withGraph)
		},
	}
	cmd.Flags().String("sqlite", "", "Store in this SQLite file instead of PostgreSQL")
	cmd.Flags().Bool("graph", false, "Also upsert the ownership graph into Neo4j")
	return cmd
}

func (a *app) runPush(cmd *cobra.Command, inputPath, sqlitePath string, withGraph bool) error {
	ctx, cancel := setupContext()
	defer cancel()

	countries, stats, err := parser.ParseFile(inputPath, parser.NewTable(a.cfg.ExitKeys...))
	if err != nil {
		return err
	}
	hash, err := textutil.HashFile(inputPath)
	if err != nil {
		return fmt.Errorf("hash save file: %w", err)
	}
	run := store.Run{Name: filepath.Base(inputPath), SaveHash: hash, Countries: countries}

	var st store.Store
	if sqlitePath != "" {
		st, err = store.OpenSQLite(sqlitePath)
		if err != nil {
			return err
		}
	} else {
		if a.cfg.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is not set (use --sqlite for a local store)")
		}
		pg, err := store.OpenPostgres(ctx, a.cfg.DatabaseURL, a.cfg.InsertBatchSize)
		if err != nil {
			return err
		}
		st = pg
	}
	defer st.Close()

	runID, err := st.SaveRun(ctx, run)
	if err != nil {
		return err
	}
	log.Info().
		Int64("run_id", runID).
		Str("save", run.Name).
		Int("provinces", stats.Provinces).
		Int("countries", len(countries)).
		Msg("Run stored")
	fmt.Fprintln(cmd.OutOrStdout(), runID)

	if !withGraph {
		return nil
	}

	driver, err := graph.Connect(ctx, a.cfg.Neo4jURI, a.cfg.Neo4jUser, a.cfg.Neo4jPassword)
	if err != nil {
		return err
	}
	defer driver.Close(ctx)

	gb := graph.NewGraphBuilder(driver, a.names)
	if err := gb.EnsureSchema(ctx); err != nil {
		return err
	}
	runName := fmt.Sprintf("%s#%d", run.Name, runID)
	if err := gb.UpsertRun(ctx, runName, countries); err != nil {
		return err
	}

	owned, err := gb.OwnedCounts(ctx, runName)
	if err != nil {
		return err
	}
	return checkOwned(countries, owned)
}

// checkOwned compares the graph's per-country province counts with the
// parsed ones. A parsed country missing from the graph counts as zero.
func checkOwned(countries country.Countries, owned map[string]int) error {
	mismatched := 0
	for _, tag := range country.SortedTags(countries) {
		parsed, inGraph := len(countries[tag].Provinces), owned[tag]
		if parsed != inGraph {
			mismatched++
			log.Warn().Str("tag", tag).Int("graph", inGraph).Int("parsed", parsed).Msg("Graph province count mismatch")
		}
	}
	if mismatched > 0 {
		return fmt.Errorf("graph province counts differ for %d countries", mismatched)
	}
	return nil
}

func (a *app) similarCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "similar <run-id> <tag>",
		Short: "List the countries of a stored run with the closest demographic profile",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			k, _ := cmd.Flags().GetInt("k")
			if err := positiveInt("k", k); err != nil {
				return err
			}
			runID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("parse run id: %w", err)
			}
			return a.runSimilar(cmd, runID, args[1], k)
		},
	}
	cmd.Flags().Int("k", 5, "Number of matches")
	return cmd
}

func (a *app) runSimilar(cmd *cobra.Command, runID int64, tag string, k int) error {
	ctx, cancel := setupContext()
	defer cancel()

	if a.cfg.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is not set")
	}
	pg, err := store.OpenPostgres(ctx, a.cfg.DatabaseURL, a.cfg.InsertBatchSize)
	if err != nil {
		return err
	}
	defer pg.Close()

	matches, err := pg.Similar(ctx, runID, tag, k)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "TAG\tNAME\tDISTANCE\n")
	for _, m := range matches {
		fmt.Fprintf(tw, "%s\t%s\t%.4f\n", m.Tag, a.names.Name(m.Tag), m.Distance)
	}
	return tw.Flush()
}
