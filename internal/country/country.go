package country

import (
	"fmt"
	"math"
	"strings"
)

// NoOwner is the owner tag of a province whose owner line has not been seen.
const NoOwner = "NIL"

// popUnit converts save-file population figures into inhabitants.
const popUnit = 10000

// Province holds the figures extracted from one province record.
type Province struct {
	Name              string  `json:"name"`
	RuralPop          int32   `json:"rural_pop"`
	UrbanPop          int32   `json:"urban_pop"`
	WealthTotalGrowth float32 `json:"wealth_total_growth"`
	WealthUrbanGrowth float32 `json:"wealth_urban_growth"`
	Owner             string  `json:"owner"`
}

// NewProvince returns an empty province with no owner.
func NewProvince() *Province {
	return &Province{Owner: NoOwner}
}

// HasOwner reports whether the province can be attributed to a country.
func (p *Province) HasOwner() bool {
	return p.Owner != NoOwner
}

// AddRuralPop adds a population figure measured in units of 10k.
// The scaled value is truncated toward zero.
func (p *Province) AddRuralPop(units float32) {
	p.RuralPop += scalePop(units)
}

// AddUrbanPop is AddRuralPop for the urban population.
func (p *Province) AddUrbanPop(units float32) {
	p.UrbanPop += scalePop(units)
}

func (p *Province) AddWealthGrowth(v float32) {
	p.WealthTotalGrowth += v
}

func (p *Province) AddUrbanWealthGrowth(v float32) {
	p.WealthUrbanGrowth += v
}

// SetName stores a raw save-file value with its quotes removed.
func (p *Province) SetName(raw string) {
	p.Name = unquote(raw)
}

// SetOwner stores a raw save-file tag with its quotes removed.
func (p *Province) SetOwner(raw string) {
	p.Owner = unquote(raw)
}

func (p *Province) String() string {
	return fmt.Sprintf("Prov %s has rural pop %d and urban pop %d", p.Name, p.RuralPop, p.UrbanPop)
}

// scalePop truncates toward zero and saturates at the int32 bounds. NaN
// scales to 0.
func scalePop(units float32) int32 {
	v := units * popUnit
	switch {
	case math.IsNaN(float64(v)):
		return 0
	case v >= math.MaxInt32:
		return math.MaxInt32
	case v <= math.MinInt32:
		return math.MinInt32
	}
	return int32(v)
}

func unquote(raw string) string {
	return strings.ReplaceAll(raw, `"`, "")
}

// Country aggregates every province owned by one tag.
type Country struct {
	Tag                    string      `json:"tag"`
	Provinces              []*Province `json:"provinces"`
	TotalRuralPop          int32       `json:"total_rural_pop"`
	TotalUrbanPop          int32       `json:"total_urban_pop"`
	TotalWealthGrowth      float32     `json:"total_wealth_growth"`
	TotalUrbanWealthGrowth float32     `json:"total_urban_wealth_growth"`
}

// New returns a country without provinces.
func New(tag string) *Country {
	return &Country{Tag: tag, Provinces: []*Province{}}
}

// add folds p into the totals and appends it; both happen here so the
// totals never drift from the province list.
func (c *Country) add(p *Province) {
	c.TotalRuralPop += p.RuralPop
	c.TotalUrbanPop += p.UrbanPop
	c.TotalWealthGrowth += p.WealthTotalGrowth
	c.TotalUrbanWealthGrowth += p.WealthUrbanGrowth
	c.Provinces = append(c.Provinces, p)
}

// TotalPop is the rural plus urban population.
func (c *Country) TotalPop() int64 {
	return int64(c.TotalRuralPop) + int64(c.TotalUrbanPop)
}

// Urbanization is the urban share of the population, 0 for an empty country.
func (c *Country) Urbanization() float64 {
	total := c.TotalPop()
	if total == 0 {
		return 0
	}
	return float64(c.TotalUrbanPop) / float64(total)
}

// WealthPerThousand is the total wealth growth per thousand inhabitants.
func (c *Country) WealthPerThousand() float64 {
	total := c.TotalPop()
	if total == 0 {
		return 0
	}
	return 1000 * float64(c.TotalWealthGrowth) / float64(total)
}

// Profile is the economic fingerprint used for similarity search:
// urbanization, wealth per thousand, urban share of wealth growth and
// log10 of the population.
func (c *Country) Profile() []float32 {
	urbanShare := 0.0
	if c.TotalWealthGrowth != 0 {
		urbanShare = float64(c.TotalUrbanWealthGrowth) / float64(c.TotalWealthGrowth)
	}
	return []float32{
		float32(c.Urbanization()),
		float32(c.WealthPerThousand()),
		float32(urbanShare),
		float32(math.Log10(1 + float64(c.TotalPop()))),
	}
}

// Countries maps owner tags to their aggregate.
type Countries map[string]*Country

// AddProvince attributes p to its owner, creating the country on first use.
// Provinces without an owner are dropped and false is returned.
func AddProvince(countries Countries, p *Province) bool {
	if !p.HasOwner() {
		return false
	}
	c, ok := countries[p.Owner]
	if !ok {
		c = New(p.Owner)
		countries[p.Owner] = c
	}
	c.add(p)
	return true
}

// Merge folds every province of src into dst, keeping src's province order.
// Callers merging several maps must do so in a fixed order to get a
// deterministic province sequence.
func Merge(dst, src Countries) {
	for _, tag := range SortedTags(src) {
		for _, p := range src[tag].Provinces {
			AddProvince(dst, p)
		}
	}
}
