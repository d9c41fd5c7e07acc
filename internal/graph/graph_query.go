package graph

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// OwnedCounts returns how many provinces each country owns in run.
func (gb *GraphBuilder) OwnedCounts(ctx context.Context, run string) (map[string]int, error) {
	session := gb.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close(ctx)

	result, err := session.Run(ctx, `
		MATCH (c:Country)-[:OWNS {run: $run}]->(p:Province)
		RETURN c.tag AS tag, count(p) AS provinces
	`, map[string]any{"run": run})
	if err != nil {
		return nil, fmt.Errorf("query owned provinces: %w", err)
	}

	counts := make(map[string]int)
	for result.Next(ctx) {
		record := result.Record()
		tag, _, err := neo4j.GetRecordValue[string](record, "tag")
		if err != nil {
			return nil, fmt.Errorf("read tag: %w", err)
		}
		n, _, err := neo4j.GetRecordValue[int64](record, "provinces")
		if err != nil {
			return nil, fmt.Errorf("read province count: %w", err)
		}
		counts[tag] = int(n)
	}
	if err := result.Err(); err != nil {
		return nil, fmt.Errorf("iterate owned provinces: %w", err)
	}
	return counts, nil
}
