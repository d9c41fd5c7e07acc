package graph

import (
	"context"
	"errors"
	"strings"
	"testing"

	"save-parser/internal/country"
	"save-parser/internal/tags"
)

type statement struct {
	cypher string
	params map[string]any
}

func sampleCountries() country.Countries {
	countries := make(country.Countries)
	country.AddProvince(countries, &country.Province{Name: "Paris", RuralPop: 20000, Owner: "FRA"})
	country.AddProvince(countries, &country.Province{Name: "Lyon", RuralPop: 30000, Owner: "FRA"})
	country.AddProvince(countries, &country.Province{Name: "Venezia", UrbanPop: 40000, Owner: "VEN"})
	return countries
}

func testBuilder(t *testing.T) *GraphBuilder {
	t.Helper()
	names, err := tags.Load(strings.NewReader("FRA,France\nVEN,Venice\n"))
	if err != nil {
		t.Fatalf("load tags: %v", err)
	}
	return NewGraphBuilder(nil, names)
}

func TestUpsertRunWritesCountriesAndProvinces(t *testing.T) {
	t.Parallel()

	var got []statement
	exec := func(_ context.Context, cypher string, params map[string]any) error {
		got = append(got, statement{cypher: cypher, params: params})
		return nil
	}

	if err := testBuilder(t).upsertRun(context.Background(), exec, "1444.txt#1", sampleCountries()); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if len(got) != 4 {
		t.Fatalf("statements = %d, want 4", len(got))
	}

	fra := got[0].params
	if fra["tag"] != "FRA" || fra["name"] != "France" || fra["label"] != "Country France" {
		t.Fatalf("FRA params = %v", fra)
	}
	rows, ok := got[1].params["provinces"].([]any)
	if !ok || len(rows) != 2 {
		t.Fatalf("FRA provinces = %v, want 2 rows", got[1].params["provinces"])
	}
	if got[1].params["run"] != "1444.txt#1" {
		t.Fatalf("run = %v", got[1].params["run"])
	}
	if got[2].params["tag"] != "VEN" || got[2].params["label"] != "Country Venice" {
		t.Fatalf("VEN params = %v", got[2].params)
	}
}

func TestUpsertRunStopsOnProvinceWriteError(t *testing.T) {
	t.Parallel()

	writeErr := errors.New("connection reset")
	calls := 0
	exec := func(_ context.Context, cypher string, params map[string]any) error {
		calls++
		if strings.Contains(cypher, "UNWIND") && params["tag"] == "FRA" {
			return writeErr
		}
		return nil
	}

	err := testBuilder(t).upsertRun(context.Background(), exec, "run", sampleCountries())
	if !errors.Is(err, writeErr) {
		t.Fatalf("err = %v, want %v", err, writeErr)
	}
	if !strings.Contains(err.Error(), "FRA") {
		t.Fatalf("err = %v, want tag in message", err)
	}
	if calls != 2 {
		t.Fatalf("statements run = %d, want 2 (VEN must not be written)", calls)
	}
}
