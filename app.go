package main

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/nijaru/yt-themes/classifier"
	"github.com/nijaru/yt-themes/config"
	"github.com/nijaru/yt-themes/logger"
	"github.com/nijaru/yt-themes/report"
	"github.com/nijaru/yt-themes/repository/sqlite"
	"github.com/nijaru/yt-themes/scripts"
	"github.com/nijaru/yt-themes/storage"
	"github.com/nijaru/yt-themes/themes"
)

// application holds the wired dependencies shared by every command.
type application struct {
	cfg     *config.Config
	logger  *logrus.Logger
	db      *sqlite.DB
	service *themes.Service
	closers []io.Closer
}

type appOptions struct {
	console    *os.File
	withDB     bool
	withRunner bool
}

func newApplication(ctx context.Context, cfg *config.Config, opts appOptions) (*application, error) {
	log, logCloser, err := logger.NewLogger(logger.Options{
		Dir:     cfg.LogDir,
		Level:   cfg.LogLevel,
		Debug:   cfg.Debug,
		Console: opts.console,
	})
	if err != nil {
		return nil, errors.Wrap(err, "initialize logger")
	}
	a := &application{cfg: cfg, logger: log, closers: []io.Closer{logCloser}}

	if err := report.Init(cfg.SentryDSN, cfg.Environment, cfg.Version); err != nil {
		log.WithError(err).Warn("Failed to initialize error reporting")
	}

	if opts.withDB {
		db, err := sqlite.Open(ctx, cfg.Database.Path, sqlite.DBConfig{
			MaxConnections:     cfg.Database.MaxConnections,
			MaxIdleConnections: cfg.Database.MaxConnections / 2,
			ConnMaxLifetime:    time.Hour,
		})
		if err != nil {
			a.Close()
			return nil, errors.Wrap(err, "initialize database")
		}
		a.db = db
		a.closers = append(a.closers, db)
	}

	var factory themes.Factory
	if opts.withRunner {
		factory, err = a.classifierFactory(ctx)
		if err != nil {
			a.Close()
			return nil, err
		}
	}

	if a.db != nil {
		a.service = themes.NewService(factory, sqlite.NewRepository(a.db), log)
	} else {
		a.service = themes.NewService(factory, nil, log)
	}

	return a, nil
}

func (a *application) classifierFactory(ctx context.Context) (themes.Factory, error) {
	cc := a.cfg.Classifier
	runner, err := scripts.NewScriptRunner(scripts.Config{
		PythonPath:      cc.PythonPath,
		ScriptsPath:     cc.ScriptsPath,
		Timeout:         cc.Timeout,
		Environment:     cc.Environment,
		RequiredScripts: []string{cc.Script},
	}, a.logger)
	if err != nil {
		return nil, errors.Wrap(err, "initialize script runner")
	}

	opts := classifier.Options{
		Script:       cc.Script,
		Model:        cc.Model,
		BatchSize:    cc.BatchSize,
		UploadPrefix: a.cfg.Spaces.Prefix,
		Logger:       a.logger,
	}

	if a.cfg.Spaces.Enabled() {
		client, err := storage.NewSpacesClient(ctx, storage.SpacesConfig{
			AccessKey: a.cfg.Spaces.AccessKey,
			SecretKey: a.cfg.Spaces.SecretKey,
			Region:    a.cfg.Spaces.Region,
			Endpoint:  a.cfg.Spaces.Endpoint,
			Bucket:    a.cfg.Spaces.Bucket,
		}, a.logger)
		if err != nil {
			return nil, errors.Wrap(err, "initialize result storage")
		}
		opts.Uploader = client
		a.logger.WithField("bucket", a.cfg.Spaces.Bucket).Info("Result upload enabled")
	}

	return themes.NewScriptFactory(runner, opts), nil
}

func (a *application) Close() {
	report.Flush(2 * time.Second)
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			logrus.WithError(err).Warn("Failed to close resource")
		}
	}
}
