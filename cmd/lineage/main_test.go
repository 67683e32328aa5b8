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
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/AleutianAI/trackmystarter/services/lineage"
	"github.com/AleutianAI/trackmystarter/services/lineage/config"
	"github.com/AleutianAI/trackmystarter/services/lineage/storage"
	badgerstore "github.com/AleutianAI/trackmystarter/services/lineage/storage/badger"
	"github.com/AleutianAI/trackmystarter/services/lineage/telemetry"
	"github.com/AleutianAI/trackmystarter/services/lineage/tree"
	"github.com/AleutianAI/trackmystarter/services/lineage/words"
)

// cliEnv points the word list at the repository copy and clears
// environment overrides.
func cliEnv(t *testing.T) {
	t.Helper()
	wordsFile, err := filepath.Abs(filepath.Join("..", "..", words.FileName))
	require.NoError(t, err)

	t.Setenv(words.EnvWordsFile, wordsFile)
	for _, k := range []string{config.EnvPort, config.EnvDataDir, config.EnvInMemory, config.EnvLogLevel} {
		t.Setenv(k, "")
	}
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer

	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)

	err := root.Execute()
	return out.String(), err
}

func TestCLI_NewListTree(t *testing.T) {
	cliEnv(t)
	dataDir := t.TempDir()

	out, err := runCLI(t, "--data-dir", dataDir, "new",
		"--category", "sourdough", "--lat", "47.61", "--lng", "-122.33", "--name", "Herman", "--json")
	require.NoError(t, err)
	var root lineage.StarterResponse
	require.NoError(t, json.Unmarshal([]byte(out), &root))
	assert.Equal(t, "Herman", root.Name)
	assert.Empty(t, root.ParentIdentifier)

	out, err = runCLI(t, "--data-dir", dataDir, "new",
		"--category", "sourdough", "--lat", "0", "--lng", "0", "--parent", root.Identifier, "--json")
	require.NoError(t, err)
	var child lineage.StarterResponse
	require.NoError(t, json.Unmarshal([]byte(out), &child))
	assert.Equal(t, root.Identifier, child.ParentIdentifier)
	assert.Equal(t, root.Words[0], child.Words[0], "descendants share the lineage's first word")

	out, err = runCLI(t, "--data-dir", dataDir, "list", "--json")
	require.NoError(t, err)
	var items []lineage.SummaryResponse
	require.NoError(t, json.Unmarshal([]byte(out), &items))
	assert.Len(t, items, 2)

	out, err = runCLI(t, "--data-dir", dataDir, "tree", child.Identifier)
	require.NoError(t, err)
	want := root.Identifier + " (Herman, sourdough)\n" +
		"└── * " + child.Identifier + " (sourdough)\n"
	assert.Equal(t, want, out)
	assert.NotEqual(t, dataDir, config.Global.Storage.Path, "--data-dir stays local to the command")
}

func TestCLI_NewPlainOutput(t *testing.T) {
	cliEnv(t)

	out, err := runCLI(t, "--data-dir", t.TempDir(), "new",
		"--category", "kombucha", "--lat", "1", "--lng", "2")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "OK: Created "))
	assert.Contains(t, out, "category\tkombucha\n")
}

func TestCLI_NewErrors(t *testing.T) {
	cliEnv(t)
	dataDir := t.TempDir()

	_, err := runCLI(t, "--data-dir", dataDir, "new", "--category", "bread", "--lat", "1", "--lng", "2")
	assert.ErrorIs(t, err, lineage.ErrValidation)

	_, err = runCLI(t, "--data-dir", dataDir, "new", "--category", "sourdough", "--lat", "1")
	assert.Error(t, err, "lng is required")

	_, err = runCLI(t, "--data-dir", dataDir, "new",
		"--category", "sourdough", "--lat", "1", "--lng", "2", "--parent", "aaaaa-bbbbb-ccccc")
	assert.ErrorIs(t, err, lineage.ErrNotFound)
}

func TestCLI_TreeErrors(t *testing.T) {
	cliEnv(t)
	dataDir := t.TempDir()

	_, err := runCLI(t, "--data-dir", dataDir, "tree", "xx")
	assert.ErrorIs(t, err, lineage.ErrInvalidIdentifier)

	_, err = runCLI(t, "--data-dir", dataDir, "tree", "aaaaa-bbbbb-ccccc")
	assert.ErrorIs(t, err, lineage.ErrNotFound)
}

func TestCLI_IdentParse(t *testing.T) {
	cliEnv(t)

	out, err := runCLI(t, "ident", "parse", "Bread-Ocean-Maple")
	require.NoError(t, err)
	assert.Equal(t, "identifier\tbread-ocean-maple\nfirst\tbread\nwords\tbread ocean maple\n", out)

	_, err = runCLI(t, "ident", "parse", "xx")
	assert.ErrorIs(t, err, lineage.ErrInvalidIdentifier)
}

func TestCLI_IdentNew(t *testing.T) {
	cliEnv(t)

	list, err := words.Shared(words.DefaultSource())
	require.NoError(t, err)
	first := list.Word(0)

	out, err := runCLI(t, "ident", "new", "--first", first)
	require.NoError(t, err)
	id, ok := list.Decode(strings.TrimSpace(out))
	require.True(t, ok)
	assert.Equal(t, first, id.First())

	_, err = runCLI(t, "ident", "new", "--first", "zzzzz")
	assert.Error(t, err)
}

func TestCLI_ConfigInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lineage.yaml")

	out, err := runCLI(t, "config", "init", path)
	require.NoError(t, err)
	assert.Equal(t, "OK: Wrote "+path+"\n", out)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "max_tree_nodes: 100")

	_, err = runCLI(t, "config", "init", path)
	assert.Error(t, err)
}

func TestNewRouter(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cliEnv(t)

	list, err := words.Shared(words.DefaultSource())
	require.NoError(t, err)
	db, err := badgerstore.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	reg := prometheus.NewRegistry()
	svc, err := lineage.NewService(badgerstore.NewStore(db, nil), list, lineage.DefaultServiceConfig(),
		lineage.WithMetrics(lineage.NewMetrics(reg)))
	require.NoError(t, err)

	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(sdkmetric.NewManualReader()))
	httpMetrics, err := telemetry.NewMetrics(provider.Meter("test"))
	require.NoError(t, err)

	cfg := config.DefaultConfig().Server
	router := newRouter(cfg, "starter-lineage-test", lineage.NewHandlers(svc), httpMetrics,
		promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	do := func(method, path, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, path, strings.NewReader(body))
		if body != "" {
			req.Header.Set("Content-Type", "application/json")
		}
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec
	}

	rec := do(http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(lineage.RequestIDHeader))

	rec = do(http.MethodGet, "/ready", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(http.MethodPost, "/api/starters", `{"category":"jun","lat":10,"lng":20}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = do(http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "lineage_starters_created_total")
}

func TestSummaryRows(t *testing.T) {
	rows := summaryRows([]lineage.SummaryResponse{{
		Identifier: "bread-ocean-maple",
		Name:       "Herman",
		Category:   storage.CategorySourdough,
		Location:   storage.NewPoint(47.6062, -122.3321),
	}})

	require.Len(t, rows, 1)
	assert.Equal(t, "bread-ocean-maple", rows[0].ID)
	assert.Equal(t, "sourdough", rows[0].Category)
	assert.Equal(t, "47.61,-122.33", rows[0].Where)
}

func TestTreeView(t *testing.T) {
	nodes, edges := treeView(&lineage.TreeResponse{
		Nodes: []lineage.TreeNodeResponse{
			{Identifier: "b", Category: storage.CategoryKombucha, IsTarget: true},
			{Identifier: "a", Name: "Mother", Category: storage.CategoryKombucha},
		},
		Edges: []tree.Edge{{From: "a", To: "b"}},
	})

	require.Len(t, nodes, 2)
	assert.True(t, nodes[0].Target)
	assert.Equal(t, "kombucha", nodes[0].Label)
	assert.Equal(t, "Mother, kombucha", nodes[1].Label)
	require.Len(t, edges, 1)
	assert.Equal(t, "a", edges[0].From)
}
