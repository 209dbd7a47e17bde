// Package score defines the per-tier point tables used to value terminal
// configurations. A table is configuration, not logic: scoring a
// configuration is a pure sum over its cells.
//
// Three named variants ship with the engine:
//
//   - towerbloxx: 1, 2, 3, 4 (the classic scoring)
//   - simple:     1, 1, 1, 1 (counts built cells)
//   - yellowonly: 0, 0, 0, 1 (counts Yellow towers)
//
// Custom tables load from TOML:
//
//	[points]
//	blue = 1
//	red = 2
//	green = 3
//	yellow = 4
package score

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/kevindalmeijer/TowerBlocksOptimizer/pkg/errors"
	"github.com/kevindalmeijer/TowerBlocksOptimizer/pkg/grid"
)

// Table maps each tier to its non-negative point value. Empty always scores
// zero.
type Table struct {
	Name   string
	points [grid.TierCount]int
}

// Named score table variants.
var (
	// TowerBloxx is the classic 1/2/3/4 table.
	TowerBloxx = MustNew("towerbloxx", 1, 2, 3, 4)
	// Simple scores every built tier 1 point.
	Simple = MustNew("simple", 1, 1, 1, 1)
	// YellowOnly counts Yellow towers.
	YellowOnly = MustNew("yellowonly", 0, 0, 0, 1)
)

var variants = map[string]Table{
	TowerBloxx.Name: TowerBloxx,
	Simple.Name:     Simple,
	YellowOnly.Name: YellowOnly,
}

// New builds a table from per-tier points. Points must be non-negative.
func New(name string, blue, red, green, yellow int) (Table, error) {
	t := Table{Name: name}
	t.points[grid.Blue] = blue
	t.points[grid.Red] = red
	t.points[grid.Green] = green
	t.points[grid.Yellow] = yellow
	if err := t.Validate(); err != nil {
		return Table{}, err
	}
	return t, nil
}

// MustNew is New for static tables; it panics on invalid points.
func MustNew(name string, blue, red, green, yellow int) Table {
	t, err := New(name, blue, red, green, yellow)
	if err != nil {
		panic(err)
	}
	return t
}

// Validate rejects negative point values.
func (t Table) Validate() error {
	for tier, p := range t.points {
		if p < 0 {
			return errors.New(errors.ErrCodeInvalidTable, "%s scores %d, points must be non-negative", grid.Tier(tier), p)
		}
	}
	if t.points[grid.Empty] != 0 {
		return errors.New(errors.ErrCodeInvalidTable, "empty must score 0, got %d", t.points[grid.Empty])
	}
	return nil
}

// Score returns the points for a single tier. Undefined tiers score zero.
func (t Table) Score(tier grid.Tier) int {
	if !tier.Valid() {
		return 0
	}
	return t.points[tier]
}

// Total sums the table over a full configuration.
func (t Table) Total(cfg []grid.Tier) int {
	sum := 0
	for _, tier := range cfg {
		sum += t.Score(tier)
	}
	return sum
}

// MaxTier returns the highest-scoring tier allowed at the given degree,
// used for optimistic completion bounds in the search.
func (t Table) MaxTier(degree int) int {
	best := 0
	limit := grid.MaxTierForDegree(degree)
	for tier := grid.Blue; tier <= limit; tier++ {
		if p := t.points[tier]; p > best {
			best = p
		}
	}
	return best
}

// Key returns a canonical identifier for cache keys: the point values in
// tier order. Tables with equal points share a key regardless of name.
func (t Table) Key() string {
	return fmt.Sprintf("b%d.r%d.g%d.y%d",
		t.points[grid.Blue], t.points[grid.Red], t.points[grid.Green], t.points[grid.Yellow])
}

// String renders the table for logs.
func (t Table) String() string {
	return fmt.Sprintf("%s(blue=%d red=%d green=%d yellow=%d)",
		t.Name, t.points[grid.Blue], t.points[grid.Red], t.points[grid.Green], t.points[grid.Yellow])
}

// IsYellowOnly reports whether Yellow is the only scoring tier. The search
// engine routes such tables to the dedicated yellow climber.
func (t Table) IsYellowOnly() bool {
	return t.points[grid.Yellow] > 0 &&
		t.points[grid.Blue] == 0 && t.points[grid.Red] == 0 && t.points[grid.Green] == 0
}

// Variants lists the built-in table names in sorted order.
func Variants() []string {
	names := make([]string, 0, len(variants))
	for name := range variants {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// tomlTable is the on-disk form.
type tomlTable struct {
	Points struct {
		Blue   int `toml:"blue"`
		Red    int `toml:"red"`
		Green  int `toml:"green"`
		Yellow int `toml:"yellow"`
	} `toml:"points"`
}

// Load reads a custom table from a TOML file.
func Load(path string) (Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Table{}, errors.Wrap(errors.ErrCodeInvalidTable, err, "read score table %s", path)
	}
	var raw tomlTable
	if err := toml.Unmarshal(data, &raw); err != nil {
		return Table{}, errors.Wrap(errors.ErrCodeInvalidTable, err, "parse score table %s", path)
	}
	name := strings.TrimSuffix(strings.ToLower(baseName(path)), ".toml")
	return New(name, raw.Points.Blue, raw.Points.Red, raw.Points.Green, raw.Points.Yellow)
}

// Resolve maps a name-or-path to a table: built-in variant names first,
// then a TOML file path.
func Resolve(nameOrPath string) (Table, error) {
	if t, ok := variants[strings.ToLower(strings.TrimSpace(nameOrPath))]; ok {
		return t, nil
	}
	if strings.HasSuffix(nameOrPath, ".toml") {
		return Load(nameOrPath)
	}
	return Table{}, errors.New(errors.ErrCodeInvalidTable,
		"unknown score table %q (want one of %s, or a .toml file)", nameOrPath, strings.Join(Variants(), ", "))
}

func baseName(path string) string {
	if i := strings.LastIndexAny(path, `/\`); i >= 0 {
		return path[i+1:]
	}
	return path
}
