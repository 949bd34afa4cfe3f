package influxdb

import (
	"context"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"

	"github.com/hearthwise/hearth-core/internal/infrastructure/config"
	"github.com/hearthwise/hearth-core/internal/sensor"
)

// Logger is the minimal logging surface the mirror needs.
type Logger interface {
	Warn(msg string, args ...any)
	Info(msg string, args ...any)
}

// Mirror exports sensor readings to InfluxDB.
//
// Writes go through the non-blocking write API: points are batched and
// flushed in the background, and a slow or unreachable InfluxDB never
// stalls bus ingestion. Write errors are logged and the points dropped;
// SQLite remains the system of record.
type Mirror struct {
	client   influxdb2.Client
	writeAPI api.WriteAPI
	logger   Logger
}

// New creates a reading mirror. Returns nil when the export is disabled
// in config; callers treat a nil mirror as a no-op.
func New(cfg config.InfluxDBConfig, logger Logger) *Mirror {
	if !cfg.Enabled {
		return nil
	}

	client := influxdb2.NewClient(cfg.URL, cfg.Token)
	writeAPI := client.WriteAPI(cfg.Org, cfg.Bucket)

	m := &Mirror{
		client:   client,
		writeAPI: writeAPI,
		logger:   logger,
	}

	go func() {
		for err := range writeAPI.Errors() {
			logger.Warn("influxdb write failed", "error", err)
		}
	}()

	logger.Info("influxdb mirror enabled", "url", cfg.URL, "bucket", cfg.Bucket)
	return m
}

// WriteReading queues one reading for export. Non-blocking.
func (m *Mirror) WriteReading(_ context.Context, reading *sensor.Reading) {
	fields := reading.Fields()
	if len(fields) == 0 {
		return
	}

	point := influxdb2.NewPointWithMeasurement("sensor_reading").
		AddTag("device_id", reading.DeviceID).
		AddTag("house_id", reading.HouseID).
		SetTime(reading.RecordedAt)
	for name, value := range fields {
		point.AddField(name, value)
	}

	m.writeAPI.WritePoint(point)
}

// Close flushes pending points and releases the client.
func (m *Mirror) Close() {
	if m == nil {
		return
	}
	m.writeAPI.Flush()
	m.client.Close()
}
