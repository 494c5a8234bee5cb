package control

import (
	"testing"

	"github.com/spriggler/sprig-core/internal/entity"
	"github.com/spriggler/sprig-core/internal/schedule"
)

func floatPtr(f float64) *float64 { return &f }

func TestDecide(t *testing.T) {
	band := schedule.Target{Min: floatPtr(22), Max: floatPtr(26)}
	minOnly := schedule.Target{Min: floatPtr(22)}
	maxOnly := schedule.Target{Max: floatPtr(26)}

	tests := []struct {
		name   string
		value  float64
		target schedule.Target
		want   Decision
	}{
		{"below band", 20, band, DecisionIncrease},
		{"at min", 22, band, DecisionStable},
		{"inside band", 24, band, DecisionStable},
		{"at max", 26, band, DecisionStable},
		{"above band", 28, band, DecisionDecrease},

		{"min only: below", 20, minOnly, DecisionIncrease},
		{"min only: far above", 90, minOnly, DecisionStable},

		{"max only: above", 30, maxOnly, DecisionDecrease},
		{"max only: far below", -10, maxOnly, DecisionStable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Decide(tt.value, tt.target); got != tt.want {
				t.Errorf("Decide(%v) = %v, want %v", tt.value, got, tt.want)
			}
		})
	}
}

func TestDesiredForEffect(t *testing.T) {
	tests := []struct {
		name     string
		decision Decision
		effect   entity.EffectKind
		desired  bool
		ok       bool
	}{
		{"increase effect on increase", DecisionIncrease, entity.EffectIncrease, true, true},
		{"increase effect on decrease", DecisionDecrease, entity.EffectIncrease, false, true},
		{"increase effect on stable", DecisionStable, entity.EffectIncrease, false, true},

		{"decrease effect on decrease", DecisionDecrease, entity.EffectDecrease, true, true},
		{"decrease effect on increase", DecisionIncrease, entity.EffectDecrease, false, true},
		{"decrease effect on stable", DecisionStable, entity.EffectDecrease, false, true},

		{"dynamic effect on increase", DecisionIncrease, entity.EffectDynamic, true, true},
		{"dynamic effect on decrease", DecisionDecrease, entity.EffectDynamic, true, true},
		{"dynamic effect on stable", DecisionStable, entity.EffectDynamic, false, true},

		{"state effect rejected", DecisionIncrease, entity.EffectState, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			desired, ok := DesiredForEffect(tt.decision, tt.effect)
			if desired != tt.desired || ok != tt.ok {
				t.Errorf("DesiredForEffect(%v, %v) = (%v, %v), want (%v, %v)",
					tt.decision, tt.effect, desired, ok, tt.desired, tt.ok)
			}
		})
	}
}

func TestCombineDesired(t *testing.T) {
	tests := []struct {
		name          string
		contributions []bool
		want          bool
	}{
		{"all off", []bool{false, false}, false},
		{"one on wins", []bool{false, true, false}, true},
		{"all on", []bool{true, true}, true},
		{"empty", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CombineDesired(tt.contributions); got != tt.want {
				t.Errorf("CombineDesired(%v) = %v, want %v", tt.contributions, got, tt.want)
			}
		})
	}
}
