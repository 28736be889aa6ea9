package telemetry

import (
	"bytes"
	"encoding/json"
)

// Fallback values served while the device has not written a reading yet.
const (
	WaitingActivity = "Menunggu Data..."
	NormalAnomaly   = "Normal"
)

// Reading is the latest sample the wearable wrote to the current path.
type Reading struct {
	HeartRate   float64 `json:"heartRate"`
	Activity    string  `json:"activity"`
	Anomaly     string  `json:"anomaly"`
	Magnitude   float64 `json:"magnitude"`
	HRStable    bool    `json:"hrStable"`
	IsAnomalous bool    `json:"isAnomalous"`
	Temperature float64 `json:"temperature"`
	Timestamp   string  `json:"timestamp,omitempty"`
}

// FallbackReading is the reading reported when the store holds none.
func FallbackReading() Reading {
	return Reading{
		Activity: WaitingActivity,
		Anomaly:  NormalAnomaly,
		HRStable: true,
	}
}

// Record is one history sample. Missing or mistyped fields are left at
// their zero values.
type Record struct {
	Timestamp string
	HeartRate float64
	Magnitude float64
}

// ChartSeries holds three parallel sequences ready for charting.
// All three slices always have the same length and are never nil.
type ChartSeries struct {
	Labels    []string  `json:"labels"`
	HeartRate []float64 `json:"heartRate"`
	Magnitude []float64 `json:"magnitude"`
}

// EmptySeries returns a ChartSeries with three empty, non-nil slices.
func EmptySeries() ChartSeries {
	return ChartSeries{
		Labels:    []string{},
		HeartRate: []float64{},
		Magnitude: []float64{},
	}
}

// Len returns the number of points in the series.
func (c ChartSeries) Len() int { return len(c.Labels) }

func (c *ChartSeries) add(label string, heartRate, magnitude float64) {
	c.Labels = append(c.Labels, label)
	c.HeartRate = append(c.HeartRate, heartRate)
	c.Magnitude = append(c.Magnitude, magnitude)
}

// --- lenient field decoding -------------------------------------------------

// isNull reports whether raw is empty or the JSON literal null.
func isNull(raw json.RawMessage) bool {
	t := bytes.TrimSpace(raw)
	return len(t) == 0 || bytes.Equal(t, []byte("null"))
}

// objectFields splits a JSON object into its members. ok is false when raw
// is not an object.
func objectFields(raw json.RawMessage) (fields map[string]json.RawMessage, ok bool) {
	if err := json.Unmarshal(raw, &fields); err != nil || fields == nil {
		return nil, false
	}
	return fields, true
}

func numberField(fields map[string]json.RawMessage, name string, def float64) float64 {
	raw, ok := fields[name]
	if !ok || isNull(raw) {
		return def
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		return def
	}
	return f
}

func stringField(fields map[string]json.RawMessage, name string, def string) string {
	raw, ok := fields[name]
	if !ok || isNull(raw) {
		return def
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return def
	}
	return s
}

func boolField(fields map[string]json.RawMessage, name string, def bool) bool {
	raw, ok := fields[name]
	if !ok || isNull(raw) {
		return def
	}
	var b bool
	if err := json.Unmarshal(raw, &b); err != nil {
		return def
	}
	return b
}

// decodeRecord turns one history entry into a Record. present is false only
// for a null entry; any other value, object or not, yields a Record with
// defaults for whatever it lacks.
func decodeRecord(raw json.RawMessage) (rec Record, present bool) {
	if isNull(raw) {
		return Record{}, false
	}
	fields, ok := objectFields(raw)
	if !ok {
		return Record{}, true
	}
	return Record{
		Timestamp: stringField(fields, "timestamp", ""),
		HeartRate: numberField(fields, "heartRate", 0),
		Magnitude: numberField(fields, "magnitude", 0),
	}, true
}

// decodeReading overlays the fields present in raw on the fallback reading.
func decodeReading(raw json.RawMessage) Reading {
	r := FallbackReading()
	fields, ok := objectFields(raw)
	if !ok {
		return r
	}
	r.HeartRate = numberField(fields, "heartRate", r.HeartRate)
	r.Activity = stringField(fields, "activity", r.Activity)
	r.Anomaly = stringField(fields, "anomaly", r.Anomaly)
	r.Magnitude = numberField(fields, "magnitude", r.Magnitude)
	r.HRStable = boolField(fields, "hrStable", r.HRStable)
	r.IsAnomalous = boolField(fields, "isAnomalous", r.IsAnomalous)
	r.Temperature = numberField(fields, "temperature", r.Temperature)
	r.Timestamp = stringField(fields, "timestamp", r.Timestamp)
	return r
}
