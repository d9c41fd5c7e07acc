package tags

import (
	"strings"
	"testing"
)

func TestDefaultTable(t *testing.T) {
	t.Parallel()

	table, err := Default()
	if err != nil {
		t.Fatalf("default table: %v", err)
	}
	tests := map[string]string{
		"FRA": "France",
		"MNG": "Ming",
		"VEN": "Venice",
	}
	for tag, want := range tests {
		if got := table.Name(tag); got != want {
			t.Errorf("Name(%q) = %q, want %q", tag, got, want)
		}
	}
	if table.Len() == 0 {
		t.Fatal("default table is empty")
	}
}

func TestNameFallsBackToTag(t *testing.T) {
	t.Parallel()

	table, err := Load(strings.NewReader("FRA,France\n"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got := table.Name("XXX"); got != "XXX" {
		t.Fatalf("Name(XXX) = %q, want XXX", got)
	}
	if got := table.Label("FRA"); got != "Country France" {
		t.Fatalf("Label(FRA) = %q, want %q", got, "Country France")
	}
	var nilTable *Table
	if got := nilTable.Name("FRA"); got != "FRA" {
		t.Fatalf("nil table Name(FRA) = %q, want FRA", got)
	}
}

func TestLoadSkipsBlankLinesAndTrims(t *testing.T) {
	t.Parallel()

	table, err := Load(strings.NewReader("FRA, France\n\nENG,England\n"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if table.Len() != 2 {
		t.Fatalf("len = %d, want 2", table.Len())
	}
	if got := table.Name("FRA"); got != "France" {
		t.Fatalf("Name(FRA) = %q, want France", got)
	}
}

func TestLoadRejectsMalformedRows(t *testing.T) {
	t.Parallel()

	for _, input := range []string{"FRA\n", "FRA,France,extra\n", ",Nobody\n"} {
		if _, err := Load(strings.NewReader(input)); err == nil {
			t.Errorf("Load(%q) succeeded, want error", input)
		}
	}
}
