package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/user/skyglow_illuminance_go/internal/config"
	"github.com/user/skyglow_illuminance_go/internal/logging"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("illuminance", flag.ContinueOnError)
	configPath := fs.String("config", "", "YAML configuration file (default $"+config.ConfigPathEnvVar+")")
	skyRaster := fs.String("sky", "", "sky brightness raster, overrides input.sky_raster")
	results := fs.String("out", "", "results file, overrides output.results")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	cfg, err := config.Load(*configPath, config.WithSkyRaster(*skyRaster), config.WithResults(*results))
	if err != nil {
		fmt.Fprintf(os.Stderr, "illuminance: %v\n", err)
		return exitCode(err)
	}
	logging.Init(logging.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		Timestamp: true,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if _, err := NewApp(cfg).Run(ctx); err != nil {
		logging.Error().Err(err).Msg("run failed")
		return exitCode(err)
	}
	return 0
}
