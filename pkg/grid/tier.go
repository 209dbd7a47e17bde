package grid

import (
	"encoding/json"
	"strings"

	"github.com/kevindalmeijer/TowerBlocksOptimizer/pkg/errors"
)

// Tier is the kind of tower occupying a cell. Tiers are ordered by placement
// difficulty: a tier can only be placed while the cell's neighbors currently
// hold every lower non-empty tier on distinct cells.
type Tier uint8

const (
	// Empty marks a cell that has never been built on. It scores nothing,
	// supports nothing, and can never be placed by a move.
	Empty Tier = iota
	// Blue is the base tower. It is always placeable.
	Blue
	// Red requires a neighboring Blue.
	Red
	// Green requires a neighboring Blue and a neighboring Red.
	Green
	// Yellow requires a neighboring Blue, Red, and Green. Three distinct
	// neighbors are needed, so Yellow is impossible below degree 3.
	Yellow

	// TierCount is the number of tier values including Empty.
	TierCount = 5
)

var tierNames = [TierCount]string{"empty", "blue", "red", "green", "yellow"}

// tierRunes is the compact single-rune form used by ParseConfig/FormatConfig.
var tierRunes = [TierCount]byte{'.', 'B', 'R', 'G', 'Y'}

// String returns the lowercase tier name.
func (t Tier) String() string {
	if !t.Valid() {
		return "invalid"
	}
	return tierNames[t]
}

// Rune returns the compact single-byte form: '.' for Empty, else the tier's
// initial.
func (t Tier) Rune() byte {
	if !t.Valid() {
		return '?'
	}
	return tierRunes[t]
}

// Valid reports whether t is a defined tier value.
func (t Tier) Valid() bool {
	return t < TierCount
}

// MarshalJSON writes the tier as its name. Without it, encoding/json would
// treat a []Tier as a byte slice and emit base64 instead of a readable
// array.
func (t Tier) MarshalJSON() ([]byte, error) {
	if !t.Valid() {
		return nil, errors.New(errors.ErrCodeInvalidConfig, "cannot marshal invalid tier %d", uint8(t))
	}
	return json.Marshal(t.String())
}

// UnmarshalJSON accepts a tier name or initial, or the bare ordinal the
// previous wire form used (0=empty .. 4=yellow).
func (t *Tier) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		parsed, perr := ParseTier(s)
		if perr != nil {
			return perr
		}
		*t = parsed
		return nil
	}
	var n uint8
	if err := json.Unmarshal(data, &n); err != nil {
		return errors.New(errors.ErrCodeInvalidConfig, "tier must be a name or ordinal, got %s", data)
	}
	if !Tier(n).Valid() {
		return errors.New(errors.ErrCodeInvalidConfig, "tier ordinal %d out of range", n)
	}
	*t = Tier(n)
	return nil
}

// Supports returns the set of tiers that must be present among a cell's
// neighbors, each on a distinct cell, for t to be placed. Empty and Blue
// need nothing.
func (t Tier) Supports() []Tier {
	switch t {
	case Red:
		return []Tier{Blue}
	case Green:
		return []Tier{Blue, Red}
	case Yellow:
		return []Tier{Blue, Red, Green}
	default:
		return nil
	}
}

// SupportCount returns the number of distinct supporting neighbors t needs.
func (t Tier) SupportCount() int {
	if t <= Blue {
		return 0
	}
	return int(t) - 1
}

// ParseTier parses a tier from its name, initial, or the numeric form used
// by earlier tooling (0=blue .. 3=yellow).
func ParseTier(s string) (Tier, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "empty", ".", "-", "_":
		return Empty, nil
	case "blue", "b", "0":
		return Blue, nil
	case "red", "r", "1":
		return Red, nil
	case "green", "g", "2":
		return Green, nil
	case "yellow", "y", "3":
		return Yellow, nil
	}
	return Empty, errors.New(errors.ErrCodeInvalidConfig, "unknown tier %q", s)
}

// MaxTierForDegree returns the highest tier a cell of the given degree can
// ever hold: each support tier needs its own neighbor, so degree bounds the
// reachable tier directly (degree 0 → Blue, 3 or more → Yellow).
func MaxTierForDegree(degree int) Tier {
	switch {
	case degree <= 0:
		return Blue
	case degree >= 3:
		return Yellow
	default:
		return Tier(degree + 1)
	}
}
