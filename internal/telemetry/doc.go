// Package telemetry turns what the wearable writes to the store into the
// shapes the dashboard and device consume.
//
// Current(ctx) reads the live reading at the current path, overlaying it on
// FallbackReading so absent fields keep sane values.
//
// History(ctx) reads the last N history records ordered by key and returns
// ChartSeries{labels, heartRate, magnitude}. The store returns that result
// either as a JSON array (keys 0..n-1) or as an object; DecodeCollection
// normalizes both into one ordered Collection before Aggregate runs. History
// is fail-open: read errors go through degradeToEmpty and the caller gets an
// empty series.
//
// Labels come from the record timestamp via a LabelFunc: SubstringLabel
// (positional "HH:MM" cut, the default) or StrictLabel (parse HH:MM:SS,
// empty on mismatch).
package telemetry
