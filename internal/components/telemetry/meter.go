package telemetry

import (
	"context"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MeterAPI forwards every report to an inner API and additionally records counts as
// otel gauges so they reach the metrics exporter.
type MeterAPI struct {
	API
	gauge metric.Int64Gauge
}

func NewMeterAPI(inner API) (MeterAPI, error) {
	meter := otel.Meter("seatwatch")
	gauge, err := meter.Int64Gauge("seatwatch.count")
	if err != nil {
		return MeterAPI{}, err
	}
	return MeterAPI{API: inner, gauge: gauge}, nil
}

func (m MeterAPI) WithAttrs(args ...any) API {
	return MeterAPI{API: WithAttrs(m.API, args...), gauge: m.gauge}
}

func (m MeterAPI) ReportCount(id string, count int64) {
	m.API.ReportCount(id, count)
	m.gauge.Record(
		context.Background(), count,
		metric.WithAttributes(attribute.String("id", id)),
	)
}

// InstrumentPerfStats records process level gauges every 30 seconds until ctx is done.
func InstrumentPerfStats(ctx context.Context, tel API) {
	meter := otel.Meter("go.perf_stats")
	cpuGauge, _ := meter.Float64Gauge("cpu_usage")
	memoryGauge, _ := meter.Int64Gauge("allocated_mb")
	goroutineGauge, _ := meter.Int64Gauge("goroutine_count")

	go func() {
		var memStats runtime.MemStats
		ticker := time.NewTicker(time.Second * 30)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				runtime.ReadMemStats(&memStats)

				cpuUsage, err := cpu.PercentWithContext(ctx, time.Second*5, false)
				if err == nil && len(cpuUsage) > 0 {
					cpuGauge.Record(ctx, cpuUsage[0])
				} else if err != nil {
					tel.ReportWarning("perf-stats.cpu", err)
				}

				memoryGauge.Record(ctx, int64(memStats.Alloc/1_000_000))
				goroutineGauge.Record(ctx, int64(runtime.NumGoroutine()))
			case <-ctx.Done():
				return
			}
		}
	}()
}
