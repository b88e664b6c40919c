// Package influx persists normalized readings to InfluxDB.
//
// Architecture:
//   - One point per collection cycle, measurement "inverter_stats"
//   - Synchronous writes through the client's blocking write API; a
//     cycle's outcome always reflects its own write
//   - Second-precision timestamps, so a replayed write for the same
//     cycle replaces the point instead of duplicating it
//   - Targets InfluxDB 1.x through the v2 API compatibility layer:
//     token "user:password", bucket = database name, empty org
//
// Example usage:
//
//	w := influx.NewWriter(influx.Config{
//	    URL:      "http://127.0.0.1:8086",
//	    User:     "root",
//	    Password: "root",
//	    Database: "solarpower",
//	}, logger)
//	defer w.Close()
//
//	err := w.Write(ctx, reading)
package influx

import (
	"context"
	"fmt"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/sirupsen/logrus"

	"github.com/solarflux/solarflux/internal/reading"
)

const measurement = "inverter_stats"

// Config holds the store connection settings.
type Config struct {
	URL      string
	User     string
	Password string
	Database string
	Timeout  time.Duration // per-request budget
}

// Store is the narrow surface the collector needs from the time series
// database.
type Store interface {
	// Write persists one reading as a single point, synchronously.
	Write(ctx context.Context, r *reading.Reading) error

	// Ping verifies connectivity. Advisory: the collector starts even
	// when the store is down, because every cycle carries its own write.
	Ping(ctx context.Context) error

	// Close releases the underlying HTTP client.
	Close()
}

// Writer implements Store on top of the InfluxDB v2 client.
type Writer struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	logger   *logrus.Entry
}

var _ Store = (*Writer)(nil)

func NewWriter(cfg Config, logger *logrus.Entry) *Writer {
	timeout := cfg.Timeout
	if timeout < time.Second {
		timeout = 10 * time.Second
	}

	// MaxRetries 0 keeps the client from queueing failed batches for
	// redelivery on a later write; retrying is the collector's job and
	// never spans cycles.
	opts := influxdb2.DefaultOptions().
		SetPrecision(time.Second).
		SetHTTPRequestTimeout(uint(timeout / time.Second)).
		SetMaxRetries(0)

	token := fmt.Sprintf("%s:%s", cfg.User, cfg.Password)
	client := influxdb2.NewClientWithOptions(cfg.URL, token, opts)

	return &Writer{
		client:   client,
		writeAPI: client.WriteAPIBlocking("", cfg.Database),
		logger:   logger,
	}
}

// Write sends one reading. The returned error is a *WriteError except
// when ctx itself was canceled.
func (w *Writer) Write(ctx context.Context, r *reading.Reading) error {
	point := influxdb2.NewPoint(measurement, nil, r.Fields(), r.Timestamp)

	if err := w.writeAPI.WritePoint(ctx, point); err != nil {
		return classify(err)
	}

	w.logger.WithFields(logrus.Fields{
		"measurement": measurement,
		"timestamp":   r.Timestamp.Format(time.RFC3339),
	}).Debug("Point written")
	return nil
}

func (w *Writer) Ping(ctx context.Context) error {
	ok, err := w.client.Ping(ctx)
	if err != nil {
		return classify(err)
	}
	if !ok {
		return &WriteError{Kind: WriteConnectionRefused, Reason: "ping rejected"}
	}
	return nil
}

func (w *Writer) Close() {
	w.client.Close()
}
