package graph

import (
	"context"
	"fmt"

	"save-parser/internal/country"
	"save-parser/internal/tags"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/rs/zerolog/log"
)

// GraphBuilder writes country ownership graphs to Neo4j.
type GraphBuilder struct {
	driver neo4j.DriverWithContext
	names  *tags.Table
}

// NewGraphBuilder creates a new graph builder. names labels Country nodes.
func NewGraphBuilder(driver neo4j.DriverWithContext, names *tags.Table) *GraphBuilder {
	return &GraphBuilder{driver: driver, names: names}
}

// Connect opens a driver and verifies connectivity.
func Connect(ctx context.Context, uri, user, password string) (neo4j.DriverWithContext, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(user, password, ""))
	if err != nil {
		return nil, fmt.Errorf("connect Neo4j: %w", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		driver.Close(ctx)
		return nil, fmt.Errorf("verify Neo4j connectivity: %w", err)
	}
	log.Info().Msg("Connected to Neo4j")
	return driver, nil
}

// EnsureSchema creates constraints on the Neo4j database.
func (gb *GraphBuilder) EnsureSchema(ctx context.Context) error {
	session := gb.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer session.Close(ctx)

	constraints := []string{
		"CREATE CONSTRAINT IF NOT EXISTS FOR (c:Country) REQUIRE c.tag IS UNIQUE",
		"CREATE CONSTRAINT IF NOT EXISTS FOR (p:Province) REQUIRE (p.run, p.tag, p.seq) IS UNIQUE",
	}

	for _, c := range constraints {
		if _, err := session.Run(ctx, c, nil); err != nil {
			return fmt.Errorf("create constraint: %w", err)
		}
	}

	log.Info().Msg("Graph schema ensured")
	return nil
}

// execFunc runs one Cypher write statement.
type execFunc func(ctx context.Context, cypher string, params map[string]any) error

func sessionExec(session neo4j.SessionWithContext) execFunc {
	return func(ctx context.Context, cypher string, params map[string]any) error {
		_, err := session.Run(ctx, cypher, params)
		return err
	}
}

// UpsertRun merges one Country node per tag and links it to the provinces it
// owns in the given run. The first failed write aborts the upsert.
func (gb *GraphBuilder) UpsertRun(ctx context.Context, run string, countries country.Countries) error {
	session := gb.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer session.Close(ctx)

	return gb.upsertRun(ctx, sessionExec(session), run, countries)
}

func (gb *GraphBuilder) upsertRun(ctx context.Context, exec execFunc, run string, countries country.Countries) error {
	provinces := 0
	for _, tag := range country.SortedTags(countries) {
		c := countries[tag]

		err := exec(ctx, `
			MERGE (c:Country {tag: $tag})
			SET c.name = $name, c.label = $label
		`, map[string]any{
			"tag":   c.Tag,
			"name":  gb.names.Name(c.Tag),
			"label": gb.names.Label(c.Tag),
		})
		if err != nil {
			return fmt.Errorf("upsert country %s: %w", c.Tag, err)
		}

		rows := make([]any, 0, len(c.Provinces))
		for i, p := range c.Provinces {
			rows = append(rows, map[string]any{
				"seq":                 i,
				"name":                p.Name,
				"rural_pop":           int64(p.RuralPop),
				"urban_pop":           int64(p.UrbanPop),
				"wealth_total_growth": float64(p.WealthTotalGrowth),
				"wealth_urban_growth": float64(p.WealthUrbanGrowth),
			})
		}

		err = exec(ctx, `
			MATCH (c:Country {tag: $tag})
			UNWIND $provinces AS row
			MERGE (p:Province {run: $run, tag: $tag, seq: row.seq})
			SET p.name = row.name,
			    p.rural_pop = row.rural_pop,
			    p.urban_pop = row.urban_pop,
			    p.wealth_total_growth = row.wealth_total_growth,
			    p.wealth_urban_growth = row.wealth_urban_growth
			MERGE (c)-[o:OWNS {run: $run}]->(p)
			SET o.total_rural_pop = $total_rural_pop,
			    o.total_urban_pop = $total_urban_pop
		`, map[string]any{
			"tag":             c.Tag,
			"run":             run,
			"provinces":       rows,
			"total_rural_pop": int64(c.TotalRuralPop),
			"total_urban_pop": int64(c.TotalUrbanPop),
		})
		if err != nil {
			return fmt.Errorf("upsert provinces of %s: %w", c.Tag, err)
		}
		provinces += len(rows)
	}

	log.Info().
		Str("run", run).
		Int("countries", len(countries)).
		Int("provinces", provinces).
		Msg("Upserted ownership graph")
	return nil
}
