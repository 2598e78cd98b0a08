// Package pkg provides the libraries of the flowlayout workflow layout engine.
//
// # Overview
//
// flowlayout arranges the nodes of a workflow diagram into horizontal layers.
// Parents sit centered above their children, siblings are spread at a
// configurable spacing, and the computed positions are written back into the
// host graph. The pkg directory is organized into these areas:
//
//  1. [graph] - Host adapter contract, JSON documents and layout files
//  2. [preprocess] and [dag] - Filtering and the internal graph model
//  3. [dag/transform] - Layer assignment and cycle handling
//  4. [layout] - Bottom-up coordinate placement and optimization
//  5. [pipeline] - The engine: staged runs, caching, locking, debouncing
//  6. [cache], [lock], [debounce], [perf], [clock] - Engine infrastructure
//  7. [config], [errors], [observability] - Ambient concerns
//  8. [render] - DOT, SVG, PDF and PNG export for debugging
//
// # Architecture
//
// The data flow of one layout run:
//
//	Host graph (graph.Graph)
//	         ↓
//	    [preprocess] (filter nodes and connections, validate)
//	         ↓
//	    [dag/transform] (assign layers)
//	         ↓
//	    [layout] (place coordinates, optimize)
//	         ↓
//	    Positions written back to the host graph
//
// # Quick Start
//
// Lay out a graph document and write the positions back:
//
//	import (
//	    "context"
//
//	    "github.com/matzehuels/flowlayout/pkg/config"
//	    "github.com/matzehuels/flowlayout/pkg/graph"
//	    "github.com/matzehuels/flowlayout/pkg/pipeline"
//	)
//
//	g, _ := graph.LoadFile("flow.json")
//	engine, _ := pipeline.New(g, nil, config.Default())
//	defer engine.Dispose()
//
//	res := engine.ExecuteLayout(context.Background(), pipeline.ExecuteOptions{})
//	if res.Success {
//	    _ = graph.WriteDocumentFile(graph.FromGraph(g), "flow.positioned.json")
//	}
//
// # Hosts
//
// Any diagram editor can be laid out by implementing [graph.Graph]. The
// in-memory [graph.Memory] serves the CLI, the HTTP server and the tests.
// An optional [pipeline.PreviewManager] receives lock and unlock
// notifications around position writes.
package pkg
