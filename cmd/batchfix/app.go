package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"

	"batchfix/internal/config"
	"batchfix/internal/jobstore"
	"batchfix/internal/metrics"
	"batchfix/internal/metrics/datadog"
	"batchfix/internal/metrics/prompush"
	"batchfix/internal/pipeline"
	"batchfix/internal/source"
)

const logFileName = "batch_process.log"

// app is the per-invocation bootstrap: working directory, file logger,
// validated configuration, and a pipeline wired to all three.
type app struct {
	cfg  config.AppConfig
	log  *logrus.Logger
	pipe *pipeline.Pipeline
	dir  string

	logFile *os.File
}

// newApp prepares the working directory (results_<unix-timestamp> unless
// overridden), starts the file logger inside it, loads and validates the
// configuration. Validation errors abort; warnings are printed and the run
// continues.
func newApp() (*app, error) {
	dir := resultsDir
	if dir == "" {
		dir = fmt.Sprintf("results_%d", time.Now().Unix())
	}

	store, err := jobstore.Open(dir, cleanFirst)
	if err != nil {
		return nil, err
	}

	log := logrus.New()
	f, err := os.OpenFile(filepath.Join(dir, logFileName), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	log.SetOutput(f)
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if lvl, err := logrus.ParseLevel(os.Getenv(config.EnvPrefix + "LOG_LEVEL")); err == nil {
		log.SetLevel(lvl)
	}

	cfg, err := config.Load(configFile)
	if err != nil {
		f.Close()
		return nil, err
	}

	invalid := false
	for _, issue := range config.Validate(cfg) {
		fmt.Fprintln(os.Stderr, issue.Error())
		if issue.Severity == config.SeverityError {
			log.WithField("path", issue.Path).Error(issue.Message)
			invalid = true
		} else {
			log.WithField("path", issue.Path).Warn(issue.Message)
		}
	}
	if invalid {
		f.Close()
		return nil, errors.New("configuration is invalid")
	}

	if err := installMetrics(cfg.Metrics); err != nil {
		f.Close()
		return nil, err
	}

	log.WithField("results_dir", dir).Info("starting batch processor")

	return &app{
		cfg: cfg,
		log: log,
		dir: dir,
		pipe: &pipeline.Pipeline{
			Config: cfg,
			Store:  store,
			Log:    log,
			Out:    os.Stdout,
		},
		logFile: f,
	}, nil
}

func (a *app) close() {
	if err := metrics.Flush(); err != nil {
		a.log.WithError(err).Warn("metrics flush failed")
	}
	a.log.Info("batch processor finished")
	_ = a.logFile.Close()
}

// installMetrics plugs the configured backend into the global metrics hook.
// An empty kind leaves the no-op default in place.
func installMetrics(cfg config.MetricsConfig) error {
	switch cfg.Kind {
	case "":
		return nil
	case "prometheus":
		b, err := prompush.NewBackend("batchfix", cfg.Addr)
		if err != nil {
			return err
		}
		metrics.SetBackend(b)
	case "datadog":
		b, err := datadog.NewBackend(datadog.Config{Addr: cfg.Addr, Namespace: cfg.Namespace})
		if err != nil {
			return err
		}
		metrics.SetBackend(b)
	}
	return nil
}

// openSource opens a data-source connection for commands that bypass the
// pipeline phases (test-data seeding and cleanup).
func (a *app) openSource(ctx context.Context) (*source.Conn, error) {
	return source.Open(ctx, source.Config{
		Kind:           a.cfg.Source.Kind,
		DSN:            a.cfg.Source.DSN,
		ConnectTimeout: time.Duration(a.cfg.TimeoutSeconds) * time.Second,
	})
}
