package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/danielgtaylor/huma/v2/humacli"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/joeblew999/plat-weather/internal/registry"
	"github.com/joeblew999/plat-weather/internal/server"
	"github.com/joeblew999/plat-weather/internal/style"
)

// Options defines all CLI flags and env vars for the weather map server.
// Flags: --host, --port, --backend, --data-dir, --stream-grace, --debug
// Env vars: SERVICE_HOST, SERVICE_PORT, SERVICE_BACKEND, SERVICE_DATA_DIR,
// SERVICE_STREAM_GRACE, SERVICE_DEBUG
type Options struct {
	Host        string `doc:"Host to bind to" default:"0.0.0.0"`
	Port        int    `doc:"Port to listen on" short:"p" default:"8087"`
	Backend     string `doc:"Weather backend base URL" default:"http://localhost:5000"`
	DataDir     string `doc:"Directory for the toggle journal database" default:".data"`
	StreamGrace int    `doc:"Seconds a map session survives a dropped stream" default:"15"`
	Debug       bool   `doc:"Development logging"`
}

func newLogger(opts *Options) *zap.Logger {
	var (
		logger *zap.Logger
		err    error
	)
	if opts.Debug {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating logger: %v\n", err)
		os.Exit(1)
	}
	return logger
}

func newServer(opts *Options, logger *zap.Logger) *server.Server {
	return server.New(server.Config{
		Host:        opts.Host,
		Port:        fmt.Sprintf("%d", opts.Port),
		BackendURL:  opts.Backend,
		DataDir:     opts.DataDir,
		StreamGrace: time.Duration(opts.StreamGrace) * time.Second,
		Logger:      logger,
	})
}

func main() {
	cli := humacli.New(func(hooks humacli.Hooks, opts *Options) {
		logger := newLogger(opts)
		srv := newServer(opts, logger)
		httpServer := &http.Server{
			Addr:              fmt.Sprintf("%s:%d", opts.Host, opts.Port),
			Handler:           srv,
			ReadHeaderTimeout: 10 * time.Second,
		}

		hooks.OnStart(func() {
			displayHost := opts.Host
			if displayHost == "0.0.0.0" {
				displayHost = "localhost"
			}
			baseURL := fmt.Sprintf("http://%s:%d", displayHost, opts.Port)

			fmt.Println()
			fmt.Printf("plat-weather server starting...\n")
			fmt.Printf("  Server:  %s\n", baseURL)
			fmt.Printf("  Backend: %s\n", opts.Backend)
			fmt.Printf("  Data:    %s\n", opts.DataDir)
			fmt.Println()
			fmt.Printf("  Map:     %s/\n", baseURL)
			fmt.Printf("  Docs:    %s/docs\n", baseURL)
			fmt.Printf("  OpenAPI: %s/openapi.json\n", baseURL)
			fmt.Println()

			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Fatal("server error", zap.Error(err))
			}
		})

		hooks.OnStop(func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := httpServer.Shutdown(ctx); err != nil {
				logger.Warn("shutdown", zap.Error(err))
			}
			if err := srv.Close(); err != nil {
				logger.Warn("closing server", zap.Error(err))
			}
			_ = logger.Sync()
		})
	})

	cli.Root().Use = "weather"
	cli.Root().Short = "Weather overlay map server"
	cli.Root().Version = "0.1.0"

	// spec subcommand: export OpenAPI spec
	specCmd := &cobra.Command{
		Use:   "spec",
		Short: "Export OpenAPI spec (JSON by default, --yaml for YAML)",
		Run: humacli.WithOptions(func(cmd *cobra.Command, args []string, opts *Options) {
			opts.DataDir = ""
			srv := newServer(opts, zap.NewNop())
			defer srv.Close()

			useYAML, _ := cmd.Flags().GetBool("yaml")
			if err := printValue(srv.OpenAPI(), useYAML); err != nil {
				fmt.Fprintf(os.Stderr, "Error marshaling spec: %v\n", err)
				os.Exit(1)
			}
		}),
	}
	specCmd.Flags().BoolP("yaml", "y", false, "Output as YAML instead of JSON")
	cli.Root().AddCommand(specCmd)

	// layers subcommand: print the overlay registry with derived styles
	layersCmd := &cobra.Command{
		Use:   "layers",
		Short: "Print the overlay registry (YAML by default, --json for JSON)",
		Run: func(cmd *cobra.Command, args []string) {
			useJSON, _ := cmd.Flags().GetBool("json")
			if err := printValue(layerListing(), !useJSON); err != nil {
				fmt.Fprintf(os.Stderr, "Error printing layers: %v\n", err)
				os.Exit(1)
			}
		},
	}
	layersCmd.Flags().BoolP("json", "j", false, "Output as JSON instead of YAML")
	cli.Root().AddCommand(layersCmd)

	cli.Run()
}

type layerEntry struct {
	ID       string `json:"id" yaml:"id"`
	Name     string `json:"name" yaml:"name"`
	Group    string `json:"group" yaml:"group"`
	Category string `json:"category" yaml:"category"`
	Kind     string `json:"kind" yaml:"kind"`
}

func layerListing() []layerEntry {
	var out []layerEntry
	for _, g := range registry.Groups() {
		for _, d := range g.Layers {
			e := layerEntry{ID: d.ID, Name: d.Label(), Group: string(g.ID), Category: string(d.Category)}
			if cfg, err := style.For(d); err == nil {
				e.Kind = string(cfg.Type)
			}
			out = append(out, e)
		}
	}
	return out
}

func printValue(v any, asYAML bool) error {
	var (
		output []byte
		err    error
	)
	if asYAML {
		output, err = yaml.Marshal(v)
	} else {
		output, err = json.MarshalIndent(v, "", "  ")
	}
	if err != nil {
		return err
	}
	fmt.Println(string(output))
	return nil
}
