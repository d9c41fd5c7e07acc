package parser

import (
	"errors"
	"math"
	"testing"

	"save-parser/internal/country"
)

func TestNewTableDefaults(t *testing.T) {
	t.Parallel()

	table := NewTable()
	want := map[string]Op{
		"\trural_population":         OpRuralPop,
		"\trural_population_growing": OpRuralPop,
		"\turban_population":         OpUrbanPop,
		"\turban_population_growing": OpUrbanPop,
		"\twealth_total_growth":      OpWealthTotalGrowth,
		"\twealth_urban_growth":      OpWealthUrbanGrowth,
		"name":                       OpName,
		"owner":                      OpOwner,
		"institutions":               OpEndBlock,
		"history":                    OpEndBlock,
	}
	if len(table) != len(want) {
		t.Fatalf("table size = %d, want %d", len(table), len(want))
	}
	for key, op := range want {
		if got, ok := table[key]; !ok || got != op {
			t.Errorf("table[%q] = %v (present %v), want %v", key, got, ok, op)
		}
	}
}

func TestNewTableCustomExitKeys(t *testing.T) {
	t.Parallel()

	table := NewTable("", "buildings")
	if table["buildings"] != OpEndBlock {
		t.Fatal("custom exit key missing")
	}
	for _, k := range DefaultExitKeys {
		if table[k] != OpEndBlock {
			t.Fatalf("default exit key %q dropped when custom keys given", k)
		}
	}
	if _, ok := table[""]; ok {
		t.Fatal("empty exit key registered")
	}
}

func TestOpApply(t *testing.T) {
	t.Parallel()

	tests := []struct {
		op     Op
		value  string
		action Action
		check  func(*country.Province) bool
	}{
		{OpRuralPop, "1.5", Continue, func(p *country.Province) bool { return p.RuralPop == 15000 }},
		{OpUrbanPop, "0.1", Continue, func(p *country.Province) bool { return p.UrbanPop == 1000 }},
		{OpWealthTotalGrowth, "2.25", Continue, func(p *country.Province) bool { return p.WealthTotalGrowth == 2.25 }},
		{OpWealthUrbanGrowth, "-0.5", Continue, func(p *country.Province) bool { return p.WealthUrbanGrowth == -0.5 }},
		{OpName, `"Paris"`, Continue, func(p *country.Province) bool { return p.Name == "Paris" }},
		{OpOwner, `"FRA"`, Continue, func(p *country.Province) bool { return p.Owner == "FRA" }},
		{OpEndBlock, "{", EndBlock, func(p *country.Province) bool { return *p == *country.NewProvince() }},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.op.String(), func(t *testing.T) {
			t.Parallel()

			p := country.NewProvince()
			action, err := tt.op.Apply(tt.value, p)
			if err != nil {
				t.Fatalf("apply: %v", err)
			}
			if action != tt.action {
				t.Fatalf("action = %v, want %v", action, tt.action)
			}
			if !tt.check(p) {
				t.Fatalf("province = %+v after %s=%s", p, tt.op, tt.value)
			}
		})
	}
}

func TestOpApplyRejectsNonNumbers(t *testing.T) {
	t.Parallel()

	for _, op := range []Op{OpRuralPop, OpUrbanPop, OpWealthTotalGrowth, OpWealthUrbanGrowth} {
		for _, value := range []string{"", "abc", " 1.0", "1,5"} {
			if _, err := op.Apply(value, country.NewProvince()); !errors.Is(err, ErrNumberFormat) {
				t.Errorf("%s=%q: err = %v, want ErrNumberFormat", op, value, err)
			}
		}
	}
}

func TestOpApplyOutOfRangeNumbers(t *testing.T) {
	t.Parallel()

	tests := []struct {
		value string
		rural int32
	}{
		{"inf", math.MaxInt32},
		{"-inf", math.MinInt32},
		{"nan", 0},
		{"1e6", math.MaxInt32},
		{"-1e6", math.MinInt32},
		{"1e39", math.MaxInt32},
		{"-1e39", math.MinInt32},
	}
	for _, tt := range tests {
		p := country.NewProvince()
		if _, err := OpRuralPop.Apply(tt.value, p); err != nil {
			t.Errorf("rural_population=%s: %v", tt.value, err)
			continue
		}
		if p.RuralPop != tt.rural {
			t.Errorf("rural_population=%s: rural pop = %d, want %d", tt.value, p.RuralPop, tt.rural)
		}
	}

	p := country.NewProvince()
	if _, err := OpWealthTotalGrowth.Apply("1e39", p); err != nil {
		t.Fatalf("wealth_total_growth=1e39: %v", err)
	}
	if !math.IsInf(float64(p.WealthTotalGrowth), 1) {
		t.Fatalf("wealth growth = %v, want +Inf", p.WealthTotalGrowth)
	}
}
