// Package metrics keeps a small on-disk time series of application gauges
// and counters so the admin surface can chart them without an external TSDB.
package metrics

import (
	"path"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nakabonne/tstorage"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

var (
	mu       sync.RWMutex
	storage  tstorage.Storage
	counters sync.Map // name -> *int64
)

// Point is a single sample returned by Query.
type Point struct {
	Timestamp int64   `json:"timestamp"`
	Value     float64 `json:"value"`
}

// InitMetrics opens the series store under <workdir>/data/metrics. Calling it
// twice replaces the previous store.
func InitMetrics(workdir string) error {
	st, err := tstorage.NewStorage(
		tstorage.WithDataPath(path.Join(workdir, "data", "metrics")),
		tstorage.WithTimestampPrecision(tstorage.Seconds),
		tstorage.WithRetention(7*24*time.Hour),
	)
	if err != nil {
		return errors.Wrap(err, "open metrics storage")
	}
	mu.Lock()
	old := storage
	storage = st
	mu.Unlock()
	if old != nil {
		_ = old.Close()
	}
	return nil
}

// SetGauge records the current value of a gauge.
func SetGauge(name string, value int64) {
	insert(name, float64(value))
}

// Incr bumps a cumulative counter and records its new value.
func Incr(name string) int64 {
	v, _ := counters.LoadOrStore(name, new(int64))
	n := atomic.AddInt64(v.(*int64), 1)
	insert(name, float64(n))
	return n
}

// Counter returns the in-process value of a counter.
func Counter(name string) int64 {
	if v, ok := counters.Load(name); ok {
		return atomic.LoadInt64(v.(*int64))
	}
	return 0
}

func insert(name string, value float64) {
	mu.RLock()
	defer mu.RUnlock()
	if storage == nil {
		return
	}
	err := storage.InsertRows([]tstorage.Row{{
		Metric:    name,
		DataPoint: tstorage.DataPoint{Timestamp: time.Now().Unix(), Value: value},
	}})
	if err != nil {
		zap.L().Warn("metrics insert failed", zap.String("metric", name), zap.Error(err))
	}
}

// Query returns the samples of name in [start, end). An unknown metric or an
// empty range yields an empty slice.
func Query(name string, start, end time.Time) ([]Point, error) {
	mu.RLock()
	defer mu.RUnlock()
	if storage == nil {
		return []Point{}, nil
	}
	points, err := storage.Select(name, nil, start.Unix(), end.Unix())
	if err != nil {
		if errors.Is(err, tstorage.ErrNoDataPoints) {
			return []Point{}, nil
		}
		return nil, errors.Wrapf(err, "select metric %s", name)
	}
	result := make([]Point, 0, len(points))
	for _, p := range points {
		result = append(result, Point{Timestamp: p.Timestamp, Value: p.Value})
	}
	return result, nil
}

// Close flushes and closes the store.
func Close() error {
	mu.Lock()
	defer mu.Unlock()
	if storage == nil {
		return nil
	}
	err := storage.Close()
	storage = nil
	return err
}
