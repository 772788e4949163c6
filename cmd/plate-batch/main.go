// Command plate-batch rectifies and segments many plates in one run.
//
// Arguments are image files, directories of images, or job manifests
// (.json, .yaml, .yml) listing each image with its four plate corners.
// Images given directly or through a directory are treated as already
// extracted plates and use their full frame.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/ironsheep/plate-tools-mcp/internal/batch"
	"github.com/ironsheep/plate-tools-mcp/internal/config"
	"github.com/ironsheep/plate-tools-mcp/internal/store"
)

func main() {
	var (
		configPath string
		outputDir  string
		threshold  string
		workers    int
		dryRun     bool
		verbose    bool
		jsonLogs   bool
	)

	flag.StringVar(&configPath, "config", os.Getenv(config.EnvConfig), "YAML configuration file")
	flag.StringVar(&outputDir, "output-dir", "", "Directory for saved plates (overrides configuration)")
	flag.StringVar(&threshold, "threshold", "", "Threshold mode: adaptive or otsu (overrides configuration)")
	flag.IntVar(&workers, "workers", 0, "Concurrent plates (default: configuration, then number of CPUs)")
	flag.BoolVar(&dryRun, "dry-run", false, "Report diagnostics without writing any files")
	flag.BoolVar(&verbose, "verbose", false, "Print debug information")
	flag.BoolVar(&jsonLogs, "json", false, "Log as JSON lines")
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		fmt.Fprintf(os.Stderr, "Usage: %s [options] images|directories|manifests...\n", os.Args[0])
		flag.PrintDefaults()
		os.Exit(1)
	}

	logger := logrus.New()
	logger.Out = os.Stderr
	if jsonLogs {
		logger.Formatter = &logrus.JSONFormatter{}
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		logger.WithError(err).Fatal("Failed to load configuration")
	}
	if outputDir != "" {
		cfg.OutputDir = outputDir
	}
	if threshold != "" {
		cfg.Threshold = threshold
	}
	if workers > 0 {
		cfg.Workers = workers
	}

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		logger.WithError(err).Warn("Unknown log level, using info")
		level = logrus.InfoLevel
	}
	if verbose {
		level = logrus.DebugLevel
	}
	logger.SetLevel(level)

	opts, err := cfg.PipelineOptions()
	if err != nil {
		logger.WithError(err).Fatal("Invalid configuration")
	}

	jobs, err := collectJobs(args, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to collect jobs")
	}
	if len(jobs) == 0 {
		logger.Fatal("No images to process")
	}

	runner := &batch.Runner{
		Workers: cfg.Workers,
		Options: opts,
		Logger:  logger,
	}
	if !dryRun {
		runner.Store = store.New(cfg.OutputDir)
	}

	logger.WithFields(logrus.Fields{
		"jobs":      len(jobs),
		"threshold": cfg.Threshold,
		"frame":     fmt.Sprintf("%dx%d", cfg.Width, cfg.Height),
		"output":    cfg.OutputDir,
		"dry_run":   dryRun,
	}).Debug("Starting batch")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	report := runner.Run(ctx, jobs)

	logger.WithFields(logrus.Fields{
		"succeeded":       report.Succeeded,
		"failed":          report.Failed,
		"under_segmented": report.UnderSegmented,
		"over_segmented":  report.OverSegmented,
	}).Info("Batch complete")

	if report.Failed > 0 {
		os.Exit(2)
	}
}

// collectJobs expands directories and manifests into jobs, in argument order.
// Unreadable directories are skipped with a warning.
func collectJobs(args []string, logger *logrus.Logger) ([]batch.Job, error) {
	var jobs []batch.Job
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, err
		}

		switch {
		case info.IsDir():
			dirJobs, err := batch.JobsForDir(arg)
			if err != nil {
				logger.WithError(err).WithField("dir", arg).Warn("Skipping directory")
				continue
			}
			jobs = append(jobs, dirJobs...)
		case isManifest(arg):
			manifestJobs, err := batch.LoadJobs(arg)
			if err != nil {
				return nil, err
			}
			jobs = append(jobs, manifestJobs...)
		default:
			jobs = append(jobs, batch.Job{Path: arg})
		}
	}
	return jobs, nil
}

func isManifest(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".yaml", ".yml":
		return true
	}
	return false
}
