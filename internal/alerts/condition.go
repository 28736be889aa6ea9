package alerts

import (
	"strconv"
	"strings"

	"github.com/kalcerwatch/kalcerwatch/internal/telemetry"
)

// evalCondition evaluates a rule condition string against a Reading.
//
// Supported expressions (field operator value):
//
//	heart_rate > 120
//	heart_rate < 40
//	magnitude >= 2.5
//	temperature >= 38
//	anomalous == true
//	hr_stable == false
//	anomaly == Jatuh
//	activity != Diam
//
// Returns (fires bool, triggering value float64). Boolean and string fields
// report 1 when they fire.
// Returns (false, 0) if the expression cannot be parsed or the field is unknown.
func evalCondition(cond string, r telemetry.Reading) (bool, float64) {
	parts := strings.Fields(cond)
	if len(parts) != 3 {
		return false, 0
	}
	field, op, rhs := parts[0], parts[1], parts[2]

	switch field {
	case "anomalous", "hr_stable":
		want, err := strconv.ParseBool(rhs)
		if err != nil {
			return false, 0
		}
		v := r.IsAnomalous
		if field == "hr_stable" {
			v = r.HRStable
		}
		return fired(compareEq(v == want, op))

	case "anomaly", "activity":
		v := r.Anomaly
		if field == "activity" {
			v = r.Activity
		}
		return fired(compareEq(v == rhs, op))

	default:
		v, ok := numericField(field, r)
		if !ok {
			return false, 0
		}
		threshold, err := strconv.ParseFloat(rhs, 64)
		if err != nil {
			return false, 0
		}
		return compareFloat(v, op, threshold), v
	}
}

// numericField maps a field name to its value in the reading.
func numericField(field string, r telemetry.Reading) (float64, bool) {
	switch field {
	case "heart_rate":
		return r.HeartRate, true
	case "magnitude":
		return r.Magnitude, true
	case "temperature":
		return r.Temperature, true
	default:
		return 0, false
	}
}

// compareEq applies == or != to an equality result. Other operators never match.
func compareEq(equal bool, op string) bool {
	switch op {
	case "==":
		return equal
	case "!=":
		return !equal
	default:
		return false
	}
}

func fired(ok bool) (bool, float64) {
	if ok {
		return true, 1
	}
	return false, 0
}

// compareFloat applies a comparison operator to two float64 values.
func compareFloat(v float64, op string, threshold float64) bool {
	switch op {
	case ">":
		return v > threshold
	case ">=":
		return v >= threshold
	case "<":
		return v < threshold
	case "<=":
		return v <= threshold
	case "==":
		return v == threshold
	case "!=":
		return v != threshold
	default:
		return false
	}
}
