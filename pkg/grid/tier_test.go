package grid

import (
	"encoding/json"
	"reflect"
	"testing"
)

func TestTierJSONUsesNames(t *testing.T) {
	// Tier's kind is uint8; without explicit marshalling a []Tier would
	// encode as a base64 string instead of a readable array.
	cfg := []Tier{Blue, Yellow, Empty}
	data, err := json.Marshal(cfg)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if want := `["blue","yellow","empty"]`; string(data) != want {
		t.Errorf("Marshal(%v) = %s, want %s", cfg, data, want)
	}

	var back []Tier
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("Unmarshal(%s) error = %v", data, err)
	}
	if !reflect.DeepEqual(back, cfg) {
		t.Errorf("round trip = %v, want %v", back, cfg)
	}

	move, err := json.Marshal(Move{Row: 0, Col: 1, Tier: Red})
	if err != nil {
		t.Fatalf("Marshal(Move) error = %v", err)
	}
	if want := `{"row":0,"col":1,"tier":"red"}`; string(move) != want {
		t.Errorf("Marshal(Move) = %s, want %s", move, want)
	}
}

func TestTierJSONAcceptsOrdinals(t *testing.T) {
	// The previous wire form wrote bare ordinals; stored plans still load.
	var back []Tier
	if err := json.Unmarshal([]byte(`[1,4,0]`), &back); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if want := []Tier{Blue, Yellow, Empty}; !reflect.DeepEqual(back, want) {
		t.Errorf("Unmarshal([1,4,0]) = %v, want %v", back, want)
	}
}

func TestTierJSONRejectsUnknown(t *testing.T) {
	var tier Tier
	if err := json.Unmarshal([]byte(`"purple"`), &tier); err == nil {
		t.Error("Unmarshal(purple) should fail")
	}
	if err := json.Unmarshal([]byte(`9`), &tier); err == nil {
		t.Error("Unmarshal(9) should fail")
	}
	if _, err := json.Marshal(Tier(9)); err == nil {
		t.Error("Marshal of an undefined tier should fail")
	}
}
