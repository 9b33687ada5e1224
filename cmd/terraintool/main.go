// terraintool creates, edits, bakes and inspects terrain maps.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/Faultbox/midgard-terrain/internal/config"
	"github.com/Faultbox/midgard-terrain/internal/logger"
)

type command struct {
	name  string
	usage string
	run   func(ctx context.Context, cfg *config.Config, args []string) error
}

var commands = []command{
	{"info", "info                                   Show terrain and baked map information", cmdInfo},
	{"create", "create [-sx -sy -w -h -height -layer]  Create a block of flat sections", cmdCreate},
	{"import", "import -image <file> [options]         Import a grayscale heightmap", cmdImport},
	{"edit", "edit -x -y [-radius -strength|-layer -weight]  Apply a height or layer brush", cmdEdit},
	{"bake", "bake -out <path> [-region-size -lods]  Write streaming region chunks", cmdBake},
	{"raycast", "raycast -o x,y,z -d x,y,z               Ray cast the loaded terrain", cmdRaycast},
	{"select", "select -camera x,y,z                   Run the render selection", cmdSelect},
	{"stream", "stream -observer x,y,z                 Stream a baked map around an observer", cmdStream},
}

func main() {
	config.ParseFlags()
	args := config.Args()
	if len(args) < 1 {
		printUsage()
		os.Exit(1)
	}
	if args[0] == "help" || args[0] == "-h" || args[0] == "--help" {
		printUsage()
		return
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}
	if err := logger.InitFromConfig(cfg.Logging.Logger()); err != nil {
		fmt.Fprintf(os.Stderr, "Logger error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if cfg.Metrics.Enabled {
		serveMetrics(cfg.Metrics.Listen)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	name := args[0]
	for _, c := range commands {
		if c.name != name {
			continue
		}
		if err := c.run(ctx, cfg, args[1:]); err != nil {
			if errors.Is(err, flag.ErrHelp) {
				return
			}
			logger.Error("command failed", zap.String("command", name), zap.Error(err))
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			logger.Sync()
			os.Exit(1)
		}
		return
	}
	fmt.Fprintf(os.Stderr, "Unknown command: %s\n", name)
	printUsage()
	os.Exit(1)
}

func printUsage() {
	fmt.Println(`terraintool - heightfield terrain utility

Usage:
  terraintool [-config file] [-map path] [-backend dir|leveldb] <command> [options]

Commands:`)
	for _, c := range commands {
		fmt.Println("  " + c.usage)
	}
	fmt.Println(`
Examples:
  terraintool -map ./island create -w 4 -h 4
  terraintool -map ./island import -image height.png -max 400
  terraintool -map ./island bake -out ./island-baked
  terraintool -map ./island-baked stream -observer 300,300,0`)
}

func serveMetrics(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	go func() {
		logger.Info("serving metrics", zap.String("addr", addr))
		if err := http.ListenAndServe(addr, mux); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("metrics server stopped", zap.Error(err))
		}
	}()
}
