package grid

import (
	"strings"

	"github.com/kevindalmeijer/TowerBlocksOptimizer/pkg/errors"
)

// ParseConfig parses a configuration from text. Rows are separated by
// newlines or '/'; cells within a row by whitespace or commas, or written as
// a run of single-rune tiers ("BYB" ≡ "B Y B"). Both the rune form
// (.BRGY) and the numeric form (0-3, '-' or '.' for empty) are accepted.
//
// Returns the tier assignment in row-major order along with the parsed
// dimensions. All rows must have the same length.
func ParseConfig(s string) (cfg []Tier, rows, cols int, err error) {
	lines := splitRows(s)
	if len(lines) == 0 {
		return nil, 0, 0, errors.New(errors.ErrCodeInvalidConfig, "empty configuration")
	}
	for r, line := range lines {
		tiers, err := parseRow(line)
		if err != nil {
			return nil, 0, 0, errors.Wrap(errors.ErrCodeInvalidConfig, err, "row %d", r)
		}
		if r == 0 {
			cols = len(tiers)
		} else if len(tiers) != cols {
			return nil, 0, 0, errors.New(errors.ErrCodeInvalidConfig, "row %d has %d cells, want %d", r, len(tiers), cols)
		}
		cfg = append(cfg, tiers...)
	}
	return cfg, len(lines), cols, nil
}

// FormatConfig renders a configuration in the canonical compact form:
// rows joined by '/', cells as single runes. The output round-trips through
// [ParseConfig].
func FormatConfig(cfg []Tier, rows, cols int) string {
	var b strings.Builder
	for r := 0; r < rows; r++ {
		if r > 0 {
			b.WriteByte('/')
		}
		for c := 0; c < cols; c++ {
			b.WriteByte(cfg[r*cols+c].Rune())
		}
	}
	return b.String()
}

func splitRows(s string) []string {
	raw := strings.FieldsFunc(s, func(r rune) bool { return r == '\n' || r == '/' || r == ';' })
	rows := make([]string, 0, len(raw))
	for _, line := range raw {
		if strings.TrimSpace(line) != "" {
			rows = append(rows, line)
		}
	}
	return rows
}

func parseRow(line string) ([]Tier, error) {
	fields := strings.FieldsFunc(line, func(r rune) bool { return r == ' ' || r == '\t' || r == ',' })
	var tiers []Tier
	for _, f := range fields {
		if len(f) == 1 {
			t, err := ParseTier(f)
			if err != nil {
				return nil, err
			}
			tiers = append(tiers, t)
			continue
		}
		// A multi-rune field is a run of single-rune cells.
		for _, r := range f {
			t, err := ParseTier(string(r))
			if err != nil {
				return nil, err
			}
			tiers = append(tiers, t)
		}
	}
	if len(tiers) == 0 {
		return nil, errors.New(errors.ErrCodeInvalidConfig, "empty row")
	}
	return tiers, nil
}
