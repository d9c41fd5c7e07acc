package parser

import (
	"errors"
	"fmt"
	"strconv"

	"save-parser/internal/country"
)

// ErrNumberFormat is returned when a numeric variable holds something that
// is not a number. It aborts the whole parse.
var ErrNumberFormat = errors.New("number expected")

// Op is the mutation a known variable-block key applies to a province.
type Op int

const (
	OpRuralPop Op = iota
	OpUrbanPop
	OpWealthTotalGrowth
	OpWealthUrbanGrowth
	OpName
	OpOwner
	OpEndBlock
)

func (op Op) String() string {
	switch op {
	case OpRuralPop:
		return "rural_pop"
	case OpUrbanPop:
		return "urban_pop"
	case OpWealthTotalGrowth:
		return "wealth_total_growth"
	case OpWealthUrbanGrowth:
		return "wealth_urban_growth"
	case OpName:
		return "name"
	case OpOwner:
		return "owner"
	case OpEndBlock:
		return "end_block"
	default:
		return fmt.Sprintf("Op(%d)", int(op))
	}
}

// Action tells the scanner whether to stay in the variable block.
type Action int

const (
	Continue Action = iota
	EndBlock
)

// Apply mutates p according to op and the raw value token.
func (op Op) Apply(value string, p *country.Province) (Action, error) {
	switch op {
	case OpRuralPop, OpUrbanPop, OpWealthTotalGrowth, OpWealthUrbanGrowth:
		n, err := parseNumber(value)
		if err != nil {
			return Continue, err
		}
		switch op {
		case OpRuralPop:
			p.AddRuralPop(n)
		case OpUrbanPop:
			p.AddUrbanPop(n)
		case OpWealthTotalGrowth:
			p.AddWealthGrowth(n)
		default:
			p.AddUrbanWealthGrowth(n)
		}
	case OpName:
		p.SetName(value)
	case OpOwner:
		p.SetOwner(value)
	case OpEndBlock:
		return EndBlock, nil
	}
	return Continue, nil
}

// parseNumber accepts anything strconv reads as a float32. Values beyond the
// float32 range become ±Inf rather than an error.
func parseNumber(value string) (float32, error) {
	n, err := strconv.ParseFloat(value, 32)
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return 0, fmt.Errorf("%w: %q", ErrNumberFormat, value)
	}
	return float32(n), nil
}

// DefaultExitKeys end a variable block. "institutions" is the usual end of
// the block, "history" catches provinces that have none.
var DefaultExitKeys = []string{"institutions", "history"}

// Table maps variable-block keys to their operation. Keys keep the tab
// indentation left after the scanner strips the block's own indentation.
type Table map[string]Op

// NewTable builds the dispatch table. The default exit keys are always
// registered; exitKeys adds more.
func NewTable(exitKeys ...string) Table {
	t := Table{
		"\trural_population":         OpRuralPop,
		"\trural_population_growing": OpRuralPop,
		"\turban_population":         OpUrbanPop,
		"\turban_population_growing": OpUrbanPop,
		"\twealth_total_growth":      OpWealthTotalGrowth,
		"\twealth_urban_growth":      OpWealthUrbanGrowth,
		"name":                       OpName,
		"owner":                      OpOwner,
	}
	for _, k := range DefaultExitKeys {
		t[k] = OpEndBlock
	}
	for _, k := range exitKeys {
		if k == "" {
			continue
		}
		t[k] = OpEndBlock
	}
	return t
}
