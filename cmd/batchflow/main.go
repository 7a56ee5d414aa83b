package main

import (
	"fmt"
	"net/http"
	"os"

	"github.com/common-nighthawk/go-figure"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/batchflow-ml/batchflow/internal/batch"
	"github.com/batchflow-ml/batchflow/internal/config"
	"github.com/batchflow-ml/batchflow/internal/engine/cpu"
	"github.com/batchflow-ml/batchflow/internal/logger"
	"github.com/batchflow-ml/batchflow/internal/op"
	"github.com/batchflow-ml/batchflow/internal/pool"
	"github.com/batchflow-ml/batchflow/internal/source"
)

const version = "v0.1.0"

func main() {
	var configPath string
	var cfg *config.Config
	var rootLogger *zap.Logger

	app := &cli.App{
		Name:  "batchflow",
		Usage: "Batched compute dispatch for sample-parallel workloads",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Value:       "config.yaml",
				Usage:       "Path to the configuration file",
				EnvVars:     []string{"BATCHFLOW_CONFIG"},
				Destination: &configPath,
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "version",
				Usage: "Show version",
				Action: func(c *cli.Context) error {
					fmt.Printf("batchflow %s\n", version)
					return nil
				},
			},
			{
				Name:  "run",
				Usage: "Run the demo pipeline from the configuration file",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "batches",
						Value: 4,
						Usage: "Number of batches to dispatch",
					},
				},
				Before: func(c *cli.Context) error {
					var err error
					cfg, err = config.LoadConfig(configPath)
					if err != nil {
						return err
					}
					zapLogger, err := logger.New(cfg.Logger.Verbosity)
					if err != nil {
						return err
					}
					rootLogger = zapLogger.Named("batchflow")
					return nil
				},
				Action: func(c *cli.Context) error {
					return runPipeline(cfg, rootLogger, c.Int("batches"))
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		if rootLogger != nil {
			rootLogger.Fatal("failed to run app", zap.Error(err))
		} else {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	}
}

// runPipeline drives a synthetic image stream through the multiply-add
// operator on the worker pool.
func runPipeline(cfg *config.Config, log *zap.Logger, batches int) error {
	banner := figure.NewFigure("batchflow", "", true)
	banner.Print()

	if addr := cfg.Metrics.ListenAddress; addr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			log.Info("serving metrics", zap.String("address", addr))
			if err := http.ListenAndServe(addr, mux); err != nil {
				log.Error("metrics server stopped", zap.Error(err))
			}
		}()
	}

	workers := cfg.Pool.Workers
	if workers < 1 {
		workers = 1
	}
	p := pool.New(workers)
	defer p.Close()

	src, err := demoSource()
	if err != nil {
		return err
	}
	operator, err := cpu.NewMultiplyAdd(cfg.Pipeline.MultiplyAdd, log)
	if err != nil {
		return err
	}

	batchSize := cfg.Pipeline.BatchSize
	if batchSize < 1 {
		batchSize = 8
	}
	for i := 0; i < batches; i++ {
		in, err := src.NextBatch(batchSize)
		if err != nil {
			return err
		}
		ws := &op.Workspace{Inputs: []*batch.Batch{in}, Pool: p}
		if err := op.Execute(operator, ws, op.HostAllocator{}); err != nil {
			return fmt.Errorf("batch %d: %w", i, err)
		}
		log.Info("batch dispatched",
			zap.Int("batch", i),
			zap.Int("samples", ws.Output(0).Len()),
			zap.String("out_type", ws.Output(0).DType().String()))
	}
	return nil
}

// demoSource builds a small in-memory stream of channel-last test images
// with varying extents.
func demoSource() (*source.Memory, error) {
	shapes := []batch.Shape{
		{120, 160, 3},
		{64, 64, 3},
		{240, 320, 3},
		{32, 48, 3},
	}
	samples := make([]*batch.Sample, 0, len(shapes))
	for _, sh := range shapes {
		s, err := batch.AllocSample(sh, batch.Uint8)
		if err != nil {
			return nil, err
		}
		data := s.Uint8s()
		for i := range data {
			data[i] = uint8(i % 251)
		}
		samples = append(samples, s)
	}
	return source.NewMemory(samples, "HWC")
}
