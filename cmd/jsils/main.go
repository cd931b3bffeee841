// Command jsils is the i18n language server core's process entrypoint.
// It owns only the pieces spec.md explicitly leaves in scope for a
// driving process: flag parsing, config loading, starting the workspace
// indexer's cold scan and steady-state watch, and exposing the §6 wire
// surface as MCP tools. The LSP transport proper, the text-document
// synchroniser, and the config file watcher are out of scope (spec.md
// §1) -- editors drive this process over MCP instead.
//
// Grounded on the teacher's cmd/lci/main.go App/Flags/Commands shape
// (urfave/cli/v2), trimmed from its dozen code-graph subcommands down to
// the two this project needs: the long-running MCP tool server, and a
// one-shot `check` diagnostic dump for CI usage (the teacher's own
// status/debug subcommands' analogue).
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/standardbeagle/lci/internal/config"
	"github.com/standardbeagle/lci/internal/debug"
	"github.com/standardbeagle/lci/internal/indexer"
	"github.com/standardbeagle/lci/internal/mcpserver"
	"github.com/standardbeagle/lci/internal/query"
)

// version is overridden at build time via -ldflags.
var version = "0.1.0"

func loadConfig(c *cli.Context) (*config.Config, []string, error) {
	root := c.String("root")
	if root == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, nil, fmt.Errorf("resolve working directory: %w", err)
		}
		root = cwd
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, nil, fmt.Errorf("resolve root %q: %w", root, err)
	}
	return config.Load(absRoot)
}

func newIndexer(c *cli.Context) (*indexer.Indexer, *config.Config, error) {
	cfg, warnings, err := loadConfig(c)
	if err != nil {
		return nil, nil, err
	}
	for _, w := range warnings {
		debug.Log("CONFIG", "%s", w)
	}

	if logFile := c.String("log-file"); logFile != "" {
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file %q: %w", logFile, err)
		}
		debug.SetOutput(f)
	}

	ix, err := indexer.New(cfg.Project.Root, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("create indexer: %w", err)
	}
	return ix, cfg, nil
}

func serveCommand(c *cli.Context) error {
	ix, cfg, err := newIndexer(c)
	if err != nil {
		return err
	}
	defer ix.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := ix.Reload(ctx); err != nil && ctx.Err() == nil {
		return fmt.Errorf("initial index: %w", err)
	}

	if c.Bool("watch") {
		if err := ix.Start(ctx); err != nil {
			return fmt.Errorf("start watcher: %w", err)
		}
	}

	srv := mcpserver.New(ix, cfg)
	return srv.Run(ctx)
}

// checkCommand runs a one-shot cold-start index and prints every
// missing/unused diagnostic across the workspace as JSON, for CI usage
// -- the natural analogue of the teacher's status/debug subcommands,
// without a long-running server.
func checkCommand(c *cli.Context) error {
	ix, cfg, err := newIndexer(c)
	if err != nil {
		return err
	}
	defer ix.Close()

	ctx := context.Background()
	if err := ix.Reload(ctx); err != nil {
		return fmt.Errorf("index: %w", err)
	}

	api := query.New(cfg, ix.Graph(), ix.Registry())

	type fileReport struct {
		Path    string               `json:"path"`
		Missing []query.MissingEntry `json:"missing,omitempty"`
		Unused  []query.UnusedEntry  `json:"unused,omitempty"`
	}

	var reports []fileReport
	seen := make(map[string]bool)
	for _, u := range ix.Graph().AllUsages() {
		path, ok := ix.Registry().Path(u.FileID)
		if !ok || seen[path] {
			continue
		}
		seen[path] = true
		if m := api.Missing(u.FileID); len(m) > 0 {
			reports = append(reports, fileReport{Path: path, Missing: m})
		}
	}
	for _, tf := range ix.Graph().AllTranslations() {
		if seen[tf.Path] {
			continue
		}
		if un := api.Unused(tf.FileID); len(un) > 0 {
			reports = append(reports, fileReport{Path: tf.Path, Unused: un})
		}
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(reports); err != nil {
		return err
	}
	if len(reports) > 0 {
		return cli.Exit("diagnostics found", 1)
	}
	return nil
}

func main() {
	app := &cli.App{
		Name:    "jsils",
		Usage:   "incremental i18n translation-key index for JS/TS workspaces",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "root",
				Aliases: []string{"r"},
				Usage:   "workspace root to index (default: current directory)",
			},
			&cli.StringFlag{
				Name:  "log-file",
				Usage: "write trace logging here instead of discarding it",
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "serve",
				Usage: "start the MCP tool server over stdio",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "watch",
						Usage: "keep watching for file changes after the initial scan",
						Value: true,
					},
				},
				Action: serveCommand,
			},
			{
				Name:   "check",
				Usage:  "index once and print missing/unused diagnostics as JSON (exit 1 if any found)",
				Action: checkCommand,
			},
		},
		Action: serveCommand,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
