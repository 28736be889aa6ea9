package alerts

import (
	"testing"

	"github.com/kalcerwatch/kalcerwatch/internal/telemetry"
)

func TestEvalCondition(t *testing.T) {
	r := telemetry.Reading{
		HeartRate:   130,
		Activity:    "Berjalan",
		Anomaly:     "Jatuh",
		Magnitude:   2.75,
		HRStable:    false,
		IsAnomalous: true,
		Temperature: 37.5,
	}

	cases := []struct {
		cond  string
		fires bool
		value float64
	}{
		{"heart_rate > 120", true, 130},
		{"heart_rate < 40", false, 130},
		{"heart_rate != 130", false, 130},
		{"magnitude >= 2.75", true, 2.75},
		{"temperature >= 38", false, 37.5},
		{"temperature <= 37.5", true, 37.5},
		{"anomalous == true", true, 1},
		{"anomalous == false", false, 0},
		{"hr_stable == false", true, 1},
		{"hr_stable != false", false, 0},
		{"anomaly == Jatuh", true, 1},
		{"anomaly != Normal", true, 1},
		{"activity == Diam", false, 0},
		{"activity != Diam", true, 1},

		// malformed
		{"heart_rate > abc", false, 0},
		{"heart_rate >", false, 0},
		{"pulse > 10", false, 0},
		{"anomalous > true", false, 0},
		{"anomalous == maybe", false, 0},
		{"anomaly < Jatuh", false, 0},
		{"heart_rate ~ 10", false, 0},
		{"", false, 0},
	}

	for _, c := range cases {
		fires, value := evalCondition(c.cond, r)
		if fires != c.fires {
			t.Errorf("%q: fires got %v, want %v", c.cond, fires, c.fires)
		}
		if c.fires && value != c.value {
			t.Errorf("%q: value got %v, want %v", c.cond, value, c.value)
		}
	}
}

func TestEvalCondition_Fallback(t *testing.T) {
	r := telemetry.FallbackReading()
	if fires, _ := evalCondition("hr_stable == true", r); !fires {
		t.Error("fallback reading should be hr_stable")
	}
	if fires, _ := evalCondition("anomaly == Normal", r); !fires {
		t.Error("fallback reading should report Normal")
	}
	if fires, _ := evalCondition("heart_rate > 0", r); fires {
		t.Error("fallback heart rate should be 0")
	}
}
