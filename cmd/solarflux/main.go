package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/solarflux/solarflux/internal/collector"
	"github.com/solarflux/solarflux/internal/config"
	"github.com/solarflux/solarflux/internal/influx"
	"github.com/solarflux/solarflux/internal/inverter"
	"github.com/solarflux/solarflux/internal/monitor"
	"github.com/solarflux/solarflux/internal/retry"
)

// Command solarflux polls a solar micro-inverter's local web interface
// and writes its statistics to InfluxDB, one point per sample period.
//
// Configuration comes from the environment:
//
//	INVERTER_IP      address of the inverter (required)
//	INVERTER_USER    web interface user (required)
//	INVERTER_PASSWD  web interface password (required)
//	INFLUX_IP        InfluxDB host (default 127.0.0.1)
//	INFLUX_PORT      InfluxDB port (default 8086)
//	INFLUX_USER      InfluxDB user (default root)
//	INFLUX_PASSWD    InfluxDB password (default root)
//	DB_NAME          target database (default solarpower)
//	SAMPLE_TIME      polling interval in seconds (default 60)
//	FETCH_TIMEOUT    per-request budget towards the inverter, seconds (default 5)
//	WRITE_TIMEOUT    per-request budget towards the store, seconds (default 10)
//	RETRY_ATTEMPTS   attempts per fetch/write within a cycle (default 3)
//	STATUS_ADDR      status/metrics listen address (default :9090, empty disables)
//	DEBUG            verbose logging (default off)
func main() {
	appConfig, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize structured logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	if appConfig.Debug {
		logger.SetLevel(logrus.DebugLevel)
	}

	logger.WithFields(logrus.Fields{
		"inverter":    appConfig.Inverter.IP,
		"influx":      appConfig.Influx.URL(),
		"database":    appConfig.Influx.Database,
		"sample_time": appConfig.SampleTime.String(),
	}).Info("Starting collector")

	client := inverter.NewClient(inverter.Config{
		IP:       appConfig.Inverter.IP,
		User:     appConfig.Inverter.User,
		Password: appConfig.Inverter.Password,
		Timeout:  appConfig.FetchTimeout,
	}, logger.WithField("component", "inverter"))

	writer := influx.NewWriter(influx.Config{
		URL:      appConfig.Influx.URL(),
		User:     appConfig.Influx.User,
		Password: appConfig.Influx.Password,
		Database: appConfig.Influx.Database,
		Timeout:  appConfig.WriteTimeout,
	}, logger.WithField("component", "influx"))

	metrics := monitor.NewMetrics()
	tracker := monitor.NewTracker(metrics, 3*appConfig.SampleTime)

	policy := retry.NewPolicy(appConfig.RetryAttempts, logger.WithField("component", "retry"))
	policy.OnRetry = metrics.RecordRetry

	col := collector.New(collector.Config{
		Fetcher:  client,
		Writer:   writer,
		Retry:    policy,
		Reporter: tracker,
		Logger:   logger.WithField("component", "collector"),
		Interval: appConfig.SampleTime,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Both probes are advisory. The inverter powers down overnight and
	// the store may come up later; every cycle carries its own retry.
	if client.Reachable(ctx) {
		logger.Info("Inverter is reachable")
	} else {
		logger.Warn("Inverter is not reachable, it may be powered down")
	}
	if err := writer.Ping(ctx); err != nil {
		logger.WithError(err).Warn("InfluxDB ping failed")
	}

	errChan := make(chan error, 1)

	// Start collector in a goroutine
	go func() {
		errChan <- col.Run(ctx)
	}()

	var statusSrv *monitor.Server
	if appConfig.StatusAddr != "" {
		statusSrv = monitor.NewServer(
			appConfig.StatusAddr,
			tracker,
			metrics,
			logger.WithField("component", "monitor"),
		)
		go func() {
			if err := statusSrv.ListenAndServe(); err != nil {
				errChan <- fmt.Errorf("status server error: %w", err)
			}
		}()
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	exitCode := 0
	select {
	case sig := <-sigChan:
		logger.WithField("signal", sig.String()).Info("Received signal, shutting down")
		cancel()
		<-errChan
	case err := <-errChan:
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.WithError(err).Error("Collector stopped")
			exitCode = 1
		}
		cancel()
	}

	if statusSrv != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := statusSrv.Shutdown(shutdownCtx); err != nil {
			logger.WithError(err).Warn("Status server shutdown failed")
		}
	}

	writer.Close()
	logger.Info("Collector stopped")
	os.Exit(exitCode)
}
