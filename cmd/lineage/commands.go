// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/trackmystarter/pkg/logging"
	"github.com/AleutianAI/trackmystarter/pkg/ux"
	"github.com/AleutianAI/trackmystarter/services/lineage"
	"github.com/AleutianAI/trackmystarter/services/lineage/config"
	"github.com/AleutianAI/trackmystarter/services/lineage/storage"
	badgerstore "github.com/AleutianAI/trackmystarter/services/lineage/storage/badger"
	"github.com/AleutianAI/trackmystarter/services/lineage/words"
)

// skipConfig marks commands that run before any configuration exists.
const skipConfig = "skip-config"

// app carries state shared by every subcommand.
type app struct {
	configPath string
	dataDir    string
	verbose    bool

	cfg    config.Config
	logger *logging.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "lineage",
		Short: "Track fermentation starters and the lineages they belong to",
		Long: `lineage names every starter with three words and records which
starter it was split from, so a whole family tree can be rebuilt later.`,
		SilenceUsage:       true,
		PersistentPreRunE:  a.setup,
		PersistentPostRunE: a.teardown,
	}

	root.PersistentFlags().StringVar(&a.configPath, "config", "", "Path to a YAML config file")
	root.PersistentFlags().StringVar(&a.dataDir, "data-dir", "", "Database directory (overrides config)")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Log at debug level")

	root.AddCommand(
		a.serveCmd(),
		a.identCmd(),
		a.listCmd(),
		a.treeCmd(),
		a.newCmd(),
		a.configCmd(),
	)
	return root
}

// setup loads the process configuration and installs the process logger.
// Flag overrides apply to this command's copy; config.Global keeps what the
// file and environment said.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	if cmd.Annotations[skipConfig] != "" {
		return nil
	}

	if err := config.LoadGlobal(a.configPath); err != nil {
		return err
	}
	cfg := config.Global
	if a.dataDir != "" {
		cfg.Storage.Path = a.dataDir
		cfg.Storage.InMemory = false
	}

	// Local tools log to the terminal in text and stay quiet unless asked.
	if cmd.Name() != "serve" {
		cfg.Logging.JSON = false
		if cfg.Logging.Level < logging.LevelWarn {
			cfg.Logging.Level = logging.LevelWarn
		}
	}
	if a.verbose {
		cfg.Logging.Level = logging.LevelDebug
	}
	cfg.Logging.Output = cmd.ErrOrStderr()

	a.cfg = cfg
	a.logger = logging.New(cfg.Logging)
	slog.SetDefault(a.logger.Slog())
	return nil
}

func (a *app) teardown(_ *cobra.Command, _ []string) error {
	if a.logger == nil {
		return nil
	}
	return a.logger.Close()
}

// openService opens the configured database and builds a service over it.
// The returned close function releases the database lock.
func (a *app) openService() (*lineage.Service, func(), error) {
	list, err := words.Shared(a.cfg.Words)
	if err != nil {
		return nil, nil, fmt.Errorf("load word list: %w", err)
	}

	storeCfg := a.cfg.Storage
	storeCfg.Logger = a.logger.Slog().With(slog.String("component", "badger"))
	if storeCfg.InMemory {
		slog.Warn("Database is in-memory; nothing will be kept after this command")
	}

	db, err := badgerstore.Open(storeCfg)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s (is a server already using it?): %w", storeCfg.Path, err)
	}

	svc, err := lineage.NewService(
		badgerstore.NewStore(db, a.logger.Slog()),
		list,
		a.cfg.Lineage,
		lineage.WithLogger(a.logger.Slog()),
	)
	if err != nil {
		_ = db.Close()
		return nil, nil, err
	}

	closeFn := func() {
		if err := db.Close(); err != nil {
			slog.Warn("Failed to close database", slog.String("error", err.Error()))
		}
	}
	return svc, closeFn, nil
}

func (a *app) identCmd() *cobra.Command {
	ident := &cobra.Command{
		Use:   "ident",
		Short: "Generate and inspect three-word identifiers",
	}

	var first string
	newIdent := &cobra.Command{
		Use:   "new",
		Short: "Print a random identifier (not reserved)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			list, err := words.Shared(a.cfg.Words)
			if err != nil {
				return fmt.Errorf("load word list: %w", err)
			}
			if first != "" && !hasWord(list, first) {
				return fmt.Errorf("%q is not in the word list", first)
			}
			fmt.Fprintln(cmd.OutOrStdout(), words.Encode(list.RandomTriple(nil, first)))
			return nil
		},
	}
	newIdent.Flags().StringVar(&first, "first", "", "Fix the first word")

	parse := &cobra.Command{
		Use:   "parse <identifier>",
		Short: "Decode an identifier and show its words",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			list, err := words.Shared(a.cfg.Words)
			if err != nil {
				return fmt.Errorf("load word list: %w", err)
			}
			id, ok := list.Decode(args[0])
			if !ok {
				return fmt.Errorf("%w: %q", lineage.ErrInvalidIdentifier, args[0])
			}

			p := printerFor(cmd)
			p.Field("identifier", words.Encode(id))
			p.Field("first", id.First())
			p.Field("words", fmt.Sprintf("%s %s %s", id[0], id[1], id[2]))
			return nil
		},
	}

	ident.AddCommand(newIdent, parse)
	return ident
}

func (a *app) listCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List starters in the local database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, closeFn, err := a.openService()
			if err != nil {
				return err
			}
			defer closeFn()

			items, err := svc.ListSummaries(cmd.Context())
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd, items)
			}

			p := printerFor(cmd)
			p.Title("Starters")
			p.Raw(p.RenderRows(summaryRows(items)))
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON")
	return cmd
}

func (a *app) treeCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "tree <identifier>",
		Short: "Draw the lineage tree around a starter",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, closeFn, err := a.openService()
			if err != nil {
				return err
			}
			defer closeFn()

			t, err := svc.GetTree(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd, t)
			}

			p := printerFor(cmd)
			nodes, edges := treeView(t)
			p.Title("Lineage of " + args[0])
			p.Raw(p.RenderTree(nodes, edges, t.Truncated))
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON")
	return cmd
}

func (a *app) newCmd() *cobra.Command {
	var (
		req      lineage.CreateStarterRequest
		category string
		lat, lng float64
		parent   string
		asJSON   bool
	)

	cmd := &cobra.Command{
		Use:   "new",
		Short: "Record a starter in the local database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			req.Category = storage.Category(category)
			req.Lat = &lat
			req.Lng = &lng

			svc, closeFn, err := a.openService()
			if err != nil {
				return err
			}
			defer closeFn()

			var created *lineage.StarterResponse
			if parent != "" {
				created, err = svc.CreateDescendant(cmd.Context(), parent, &req)
			} else {
				created, err = svc.CreateStarter(cmd.Context(), &req)
			}
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd, created)
			}

			p := printerFor(cmd)
			p.Success("Created " + created.Identifier)
			p.Field("parent", created.ParentIdentifier)
			p.Field("category", string(created.Category))
			p.Field("name", created.Name)
			return nil
		},
	}

	cmd.Flags().StringVar(&category, "category", "", "Culture category (sourdough, kombucha, other, ...)")
	cmd.Flags().StringVar(&req.CategoryOther, "category-other", "", "Description when category is other")
	cmd.Flags().StringVar(&req.Name, "name", "", "Display name")
	cmd.Flags().Float64Var(&lat, "lat", 0, "Latitude in degrees")
	cmd.Flags().Float64Var(&lng, "lng", 0, "Longitude in degrees")
	cmd.Flags().StringVar(&parent, "parent", "", "Identifier of the starter this one was split from")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON")
	_ = cmd.MarkFlagRequired("category")
	_ = cmd.MarkFlagRequired("lat")
	_ = cmd.MarkFlagRequired("lng")
	return cmd
}

func (a *app) configCmd() *cobra.Command {
	cfgCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the configuration file",
	}

	initCmd := &cobra.Command{
		Use:         "init [path]",
		Short:       "Write a default configuration file",
		Args:        cobra.MaximumNArgs(1),
		Annotations: map[string]string{skipConfig: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "lineage.yaml"
			switch {
			case len(args) == 1:
				path = args[0]
			case a.configPath != "":
				path = a.configPath
			}
			if err := config.WriteDefault(path); err != nil {
				return err
			}
			printerFor(cmd).Success("Wrote " + path)
			return nil
		},
	}

	cfgCmd.AddCommand(initCmd)
	return cfgCmd
}

// printerFor styles output only when the command writes to a terminal.
func printerFor(cmd *cobra.Command) *ux.Printer {
	w := cmd.OutOrStdout()
	f, ok := w.(*os.File)
	return ux.NewPrinter(w, ok && ux.IsTerminal(f))
}

func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func hasWord(list *words.List, w string) bool {
	for i := 0; i < list.Len(); i++ {
		if list.Word(i) == w {
			return true
		}
	}
	return false
}
