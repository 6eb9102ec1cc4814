package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/23skdu/layerlens/internal/config"
	"github.com/23skdu/layerlens/internal/logger"
	"github.com/23skdu/layerlens/internal/model"
	"github.com/23skdu/layerlens/internal/pipeline"
	"github.com/23skdu/layerlens/internal/sink"
)

var (
	configPath  = flag.String("config", "", "Path to YAML config file (overrides flags)")
	tasks       = flag.String("tasks", "plurality,pos", "Comma-separated task names")
	layerSpec   = flag.String("layers", "1-11", "Layers to probe ('1-11' or '1,5,10')")
	components  = flag.Int("n_components", 10, "Number of PCA components")
	runs        = flag.Int("n_runs", 3, "Number of probe training runs")
	seed        = flag.Int64("seed", 42, "Base random seed for probe training")
	confidence  = flag.Float64("confidence", 0.95, "Confidence level for summary intervals")
	batchSize   = flag.Int("batch", 16, "Extraction batch size")
	outputDir   = flag.String("output", "outputs/layerlens", "Output directory")
	modelAddr   = flag.String("model", "", "Address of the Arrow Flight activation service")
	datasetDir  = flag.String("datasets", "", "Directory of task JSON files (builtin corpora otherwise)")
	metricsAddr = flag.String("metrics", ":9090", "Address to serve Prometheus metrics")
	logLevel    = flag.String("log-level", "INFO", "Log level (DEBUG, INFO, WARN, ERROR)")
	logFormat   = flag.String("log-format", "console", "Log format (console or json)")
)

func main() {
	flag.Parse()

	cfg := config.Default()
	cfg.Tasks = strings.Split(*tasks, ",")
	cfg.LayerSpec = *layerSpec
	cfg.Components = *components
	cfg.Runs = *runs
	cfg.Seed = *seed
	cfg.Confidence = *confidence
	cfg.BatchSize = *batchSize
	cfg.OutputDir = *outputDir
	cfg.ModelAddr = *modelAddr
	cfg.DatasetDir = *datasetDir
	cfg.MetricsAddr = *metricsAddr
	cfg.LogLevel = *logLevel
	cfg.LogFormat = *logFormat

	if *configPath != "" {
		if err := cfg.LoadFile(*configPath); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	}
	if err := cfg.ParseLayers(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if cfg.ModelAddr == "" {
		fmt.Fprintln(os.Stderr, "Error: --model flag is required")
		flag.Usage()
		os.Exit(1)
	}

	logger.Setup(cfg.LogLevel, cfg.LogFormat)
	log := logger.Log

	go func() {
		http.Handle("/metrics", promhttp.Handler())
		log.Info("metrics serving", "addr", cfg.MetricsAddr+"/metrics")
		if err := http.ListenAndServe(cfg.MetricsAddr, nil); err != nil {
			log.Warn("metrics server stopped", "err", err.Error())
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info("connecting to activation service", "addr", cfg.ModelAddr)
	m, err := model.NewFlightModel(ctx, cfg.ModelAddr)
	if err != nil {
		log.Error("activation service unavailable", "err", err.Error())
		os.Exit(1)
	}
	defer m.Close()
	log.Info("model ready", "dim", m.Dim(), "layers", m.NumLayers())

	res, err := pipeline.Run(ctx, m, pipeline.Options{
		Tasks:      cfg.Tasks,
		Layers:     cfg.Layers,
		Components: cfg.Components,
		Runs:       cfg.Runs,
		Seed:       cfg.Seed,
		Confidence: cfg.Confidence,
		BatchSize:  cfg.BatchSize,
		DatasetDir: cfg.DatasetDir,
	})
	if err != nil {
		log.Error("run failed", "err", err.Error())
		os.Exit(1)
	}

	samplesPath := filepath.Join(cfg.OutputDir, "samples.arrow")
	summaryPath := filepath.Join(cfg.OutputDir, "summary.csv")
	if err := sink.WriteSamples(samplesPath, res.Samples); err != nil {
		log.Error("writing samples failed", "err", err.Error())
		os.Exit(1)
	}
	if err := sink.WriteSummary(summaryPath, res.Summaries); err != nil {
		log.Error("writing summary failed", "err", err.Error())
		os.Exit(1)
	}

	for _, s := range res.Summaries {
		log.Info("result",
			"task", s.Task,
			"layer", s.Layer,
			"metric", s.Metric,
			"mean", fmt.Sprintf("%.4f", s.Mean),
			"ci", fmt.Sprintf("[%.4f, %.4f]", s.CILow, s.CIHigh),
			"n_runs", s.NRuns)
	}
	for _, f := range res.Failures {
		log.Warn("task branch failed", "task", f.Task, "err", f.Err.Error())
	}
	log.Info("run complete",
		"samples", samplesPath,
		"summary", summaryPath,
		"dropped_examples", res.Dropped,
		"failed_tasks", len(res.Failures))
}
