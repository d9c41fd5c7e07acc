package export

import (
	"encoding/json"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"save-parser/internal/country"
	"save-parser/internal/tags"
)

func sampleCountries() country.Countries {
	countries := make(country.Countries)
	country.AddProvince(countries, &country.Province{Name: "Paris", RuralPop: 20000, UrbanPop: 10000, WealthTotalGrowth: 0.3, WealthUrbanGrowth: 0.1, Owner: "FRA"})
	country.AddProvince(countries, &country.Province{Name: "Lyon", RuralPop: 30000, WealthTotalGrowth: 1.7, Owner: "FRA"})
	country.AddProvince(countries, &country.Province{Name: "Beijing", UrbanPop: 90000, WealthUrbanGrowth: 2.5, Owner: "MNG"})
	return countries
}

func TestJSONRoundTrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "output.json")
	want := sampleCountries()
	if err := WriteJSON(path, want); err != nil {
		t.Fatalf("write JSON: %v", err)
	}
	got, err := ReadJSON(path)
	if err != nil {
		t.Fatalf("read JSON: %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("round trip mismatch:\n got %+v\nwant %+v", got, want)
	}
}

func TestJSONFieldNames(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "output.json")
	if err := WriteJSON(path, sampleCountries()); err != nil {
		t.Fatalf("write JSON: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	var raw map[string]map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	fra, ok := raw["FRA"]
	if !ok {
		t.Fatal("FRA key missing")
	}
	for _, field := range []string{"tag", "provinces", "total_rural_pop", "total_urban_pop", "total_wealth_growth", "total_urban_wealth_growth"} {
		if _, ok := fra[field]; !ok {
			t.Errorf("country field %q missing", field)
		}
	}

	var provinces []map[string]json.RawMessage
	if err := json.Unmarshal(fra["provinces"], &provinces); err != nil {
		t.Fatalf("unmarshal provinces: %v", err)
	}
	for _, field := range []string{"name", "rural_pop", "urban_pop", "wealth_total_growth", "wealth_urban_growth", "owner"} {
		if _, ok := provinces[0][field]; !ok {
			t.Errorf("province field %q missing", field)
		}
	}
}

func TestWriteJSONLeavesNoPartialFileOnError(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "missing-dir", "output.json")
	if err := WriteJSON(path, sampleCountries()); err == nil {
		t.Fatal("expected error for missing directory")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("stat = %v, want not exist", err)
	}
}

func TestWriteJSONReplacesExistingFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "output.json")
	if err := os.WriteFile(path, []byte("stale"), 0o644); err != nil {
		t.Fatalf("write stale: %v", err)
	}
	if err := WriteJSON(path, sampleCountries()); err != nil {
		t.Fatalf("write JSON: %v", err)
	}
	if _, err := ReadJSON(path); err != nil {
		t.Fatalf("read JSON: %v", err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("dir entries = %d, want 1 (temp file left behind?)", len(entries))
	}
}

func TestWriteTSV(t *testing.T) {
	t.Parallel()

	names, err := tags.Load(strings.NewReader("FRA,France\nMNG,Ming\n"))
	if err != nil {
		t.Fatalf("load tags: %v", err)
	}
	path := filepath.Join(t.TempDir(), "summary.tsv")
	if err := WriteTSV(path, sampleCountries(), names); err != nil {
		t.Fatalf("write TSV: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 3 {
		t.Fatalf("lines = %d, want 3", len(lines))
	}
	if want := "FRA\tFrance\t2\t50000\t10000\t2\t0.1"; lines[1] != want {
		t.Fatalf("FRA row = %q, want %q", lines[1], want)
	}
	if !strings.HasPrefix(lines[2], "MNG\tMing\t1\t0\t90000\t") {
		t.Fatalf("MNG row = %q", lines[2])
	}
}

func TestWriteJSONFileMode(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "output.json")
	if err := WriteJSON(path, sampleCountries()); err != nil {
		t.Fatalf("write JSON: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if mode := info.Mode().Perm(); mode != 0644 {
		t.Fatalf("mode = %v, want 0644", mode)
	}
}
