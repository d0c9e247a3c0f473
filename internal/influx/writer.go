package influx

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/go-gota/gota/dataframe"
	influxdb2 "github.com/influxdata/influxdb-client-go/v2"

	"github.com/bstolzenburg/Ag-Methane-Programs/internal/config"
	apperrors "github.com/bstolzenburg/Ag-Methane-Programs/internal/errors"
)

// WriteStats reports one table write
type WriteStats struct {
	BuildStats
	Bucket      string
	Measurement string
}

// Writer pushes device tables into InfluxDB buckets
type Writer struct {
	cfg      config.InfluxConfig
	location *time.Location
	logger   *slog.Logger
}

// NewWriter creates a writer. Timestamps in the tables are read in loc (UTC when nil).
func NewWriter(cfg config.InfluxConfig, loc *time.Location, logger *slog.Logger) *Writer {
	if logger == nil {
		logger = slog.Default()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Writer{cfg: cfg, location: loc, logger: logger}
}

// Options returns the client options built from configuration
func (w *Writer) Options() *influxdb2.Options {
	return influxdb2.DefaultOptions().
		SetBatchSize(w.cfg.BatchSize).
		SetFlushInterval(uint(w.cfg.FlushInterval.Milliseconds())).
		SetRetryInterval(uint(w.cfg.RetryInterval.Milliseconds())).
		SetMaxRetries(w.cfg.MaxRetries).
		SetMaxRetryInterval(uint(w.cfg.MaxRetryInterval.Milliseconds())).
		SetExponentialBase(w.cfg.ExponentialBase)
}

// jitterDelay picks a random wait in [0, JitterInterval). The Go client has
// no jitter option of its own.
func (w *Writer) jitterDelay() time.Duration {
	if w.cfg.JitterInterval <= 0 {
		return 0
	}
	return rand.N(w.cfg.JitterInterval)
}

func (w *Writer) waitJitter(ctx context.Context) error {
	delay := w.jitterDelay()
	if delay == 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// BucketFor returns the configured bucket, or the site name when none is configured
func (w *Writer) BucketFor(site string) string {
	if w.cfg.Bucket != "" {
		return w.cfg.Bucket
	}
	return site
}

func (w *Writer) newClient() influxdb2.Client {
	return influxdb2.NewClientWithOptions(w.cfg.URL, w.cfg.Token, w.Options())
}

// Ping checks the server is reachable before any data is read
func (w *Writer) Ping(ctx context.Context) error {
	client := w.newClient()
	defer client.Close()

	ok, err := client.Ping(ctx)
	if err != nil {
		return apperrors.NewNetworkError("influxdb ping failed", err).WithContext("url", w.cfg.URL)
	}
	if !ok {
		return apperrors.NewNetworkError("influxdb is not ready", nil).WithContext("url", w.cfg.URL)
	}
	return nil
}

// WriteTable writes every row of df as a point in measurement. Each call uses its
// own client so a failure is attributed to exactly one table; asynchronous write
// errors are collected and returned once the client has flushed.
func (w *Writer) WriteTable(ctx context.Context, bucket, measurement string, df dataframe.DataFrame, tagColumns []string) (WriteStats, error) {
	stats := WriteStats{Bucket: bucket, Measurement: measurement}

	points, built, err := BuildPoints(df, measurement, tagColumns, w.location)
	stats.BuildStats = built
	if err != nil {
		return stats, err
	}
	if len(points) == 0 {
		return stats, nil
	}
	if err := w.waitJitter(ctx); err != nil {
		return stats, err
	}

	client := w.newClient()
	writeAPI := client.WriteAPI(w.cfg.Org, bucket)

	var (
		wg     sync.WaitGroup
		errs   []error
		errsMu sync.Mutex
	)
	errCh := writeAPI.Errors()
	wg.Add(1)
	go func() {
		defer wg.Done()
		for err := range errCh {
			errsMu.Lock()
			errs = append(errs, err)
			errsMu.Unlock()
		}
	}()

	for _, p := range points {
		if ctx.Err() != nil {
			break
		}
		writeAPI.WritePoint(p)
	}

	// Close flushes the batch buffer and closes the error channel
	client.Close()
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return stats, err
	}
	if len(errs) > 0 {
		return stats, apperrors.NewUploadError(
			fmt.Sprintf("write %s to bucket %s failed", measurement, bucket), apperrors.Join(errs...))
	}

	w.logger.Debug("Table written",
		slog.String("bucket", bucket),
		slog.String("measurement", measurement),
		slog.Int("points", stats.Points),
		slog.Int("skipped", stats.Skipped()))
	return stats, nil
}
