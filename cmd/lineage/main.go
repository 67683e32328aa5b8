// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command lineage runs the starter lineage API and its local tools.
//
// Every starter is named by three words drawn from a shared word list
// (for example bread-ocean-maple). Descendants reuse their parent's first
// word, so a lineage is recognizable at a glance.
//
// Usage:
//
//	lineage serve --config lineage.yaml
//	lineage serve --port 9090 --data-dir /srv/lineage
//
// Local tools (operate directly on the database; stop the server first):
//
//	lineage new --category sourdough --lat 47.61 --lng -122.33 --name Herman
//	lineage new --category sourdough --lat 47.6 --lng -122.3 --parent bread-ocean-maple
//	lineage list
//	lineage tree bread-ocean-maple
//	lineage ident new --first bread
//	lineage ident parse bread-ocean-maple
//	lineage config init lineage.yaml
//
// Example requests:
//
//	# Health check
//	curl http://localhost:8080/health
//
//	# Create a root starter
//	curl -X POST http://localhost:8080/api/starters \
//	  -H "Content-Type: application/json" \
//	  -d '{"category": "sourdough", "lat": 47.61, "lng": -122.33}'
//
//	# Reconstruct a lineage
//	curl http://localhost:8080/api/starters/bread-ocean-maple/tree | jq
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
