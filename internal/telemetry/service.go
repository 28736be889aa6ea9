package telemetry

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/kalcerwatch/kalcerwatch/internal/config"
	"github.com/kalcerwatch/kalcerwatch/internal/rtdb"
)

// Service reads sensor telemetry from the store. It holds no state besides
// its configuration and is safe for concurrent use.
type Service struct {
	store       rtdb.Store
	currentPath string
	historyPath string
	limit       int
	label       LabelFunc
	onDegrade   func(error)
}

// New creates a Service reading the current and history paths of paths.
func New(st rtdb.Store, paths config.PathsConfig, hist config.HistoryConfig) *Service {
	return &Service{
		store:       st,
		currentPath: paths.Current,
		historyPath: paths.History,
		limit:       hist.Limit,
		label:       LabelFor(hist.LabelMode),
	}
}

// OnDegrade registers fn to be called whenever History falls back to an
// empty series because of a read failure.
func (s *Service) OnDegrade(fn func(error)) {
	s.onDegrade = fn
}

// Current returns the latest reading. An absent node yields FallbackReading;
// fields the device did not write keep their fallback values.
func (s *Service) Current(ctx context.Context) (Reading, error) {
	var raw json.RawMessage
	if err := s.store.Get(ctx, s.currentPath, &raw); err != nil {
		return Reading{}, fmt.Errorf("telemetry: read current: %w", err)
	}
	if isNull(raw) {
		return FallbackReading(), nil
	}
	return decodeReading(raw), nil
}

// History returns the most recent records as chart series. It never fails:
// a store error is logged and yields an empty series.
func (s *Service) History(ctx context.Context) ChartSeries {
	return degradeToEmpty(func() (ChartSeries, error) {
		return s.readHistory(ctx)
	}, s.onDegrade)
}

// readHistory performs one ordered, limited read and aggregates it.
func (s *Service) readHistory(ctx context.Context) (ChartSeries, error) {
	var raw json.RawMessage
	if err := s.store.LastByKey(ctx, s.historyPath, s.limit, &raw); err != nil {
		return ChartSeries{}, fmt.Errorf("telemetry: read history: %w", err)
	}
	coll, err := DecodeCollection(raw)
	if err != nil {
		return ChartSeries{}, fmt.Errorf("telemetry: read history: %w", err)
	}
	return Aggregate(coll, s.label), nil
}

// Aggregate flattens a collection into chart series in collection order.
// Null entries are skipped; every other entry adds one point to each series.
func Aggregate(c Collection, label LabelFunc) ChartSeries {
	out := EmptySeries()
	c.Each(func(raw json.RawMessage) {
		rec, ok := decodeRecord(raw)
		if !ok {
			return
		}
		out.add(label(rec.Timestamp), rec.HeartRate, rec.Magnitude)
	})
	return out
}

// degradeToEmpty is the history failure policy: a failed read is reported
// and replaced by an empty series, the same result as "no data".
func degradeToEmpty(read func() (ChartSeries, error), onDegrade func(error)) ChartSeries {
	series, err := read()
	if err != nil {
		slog.Error("telemetry: history unavailable, serving empty chart", "err", err)
		if onDegrade != nil {
			onDegrade(err)
		}
		return EmptySeries()
	}
	return series
}
