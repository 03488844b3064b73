// Package pkg provides the libraries behind Bubbleflow radial flow diagrams.
//
// # Overview
//
// Bubbleflow places entities on concentric rings by rank and draws the
// quantities flowing between them as straight segments. The pkg directory is
// organized into four areas:
//
//  1. Domain - [model], [rank], [layout], [flow], [geometry], [rules] and
//     [view] compute one diagram from plain values.
//  2. Input - [source] loads and validates datasets, [config] reads the TOML
//     configuration.
//  3. Orchestration - [pipeline] runs dataset → render model → artifacts with
//     caching, [controller] owns the interactive state and publishes
//     snapshots.
//  4. Infrastructure - [cache], [sink], [observability], [errors] and
//     [buildinfo].
//
// # Architecture
//
// The data flow for one render:
//
//	Dataset (file, URL, stdin)
//	         ↓
//	    [source] package (parse + validate)
//	         ↓
//	    [rank] + [layout] packages (bubble radii, rings, positions)
//	         ↓
//	    [flow] + [geometry] packages (flow records → segments)
//	         ↓
//	    [rules] package (colour, opacity, labels, markers)
//	         ↓
//	    [model.RenderModel]
//	         ↓
//	    [sink] package → SVG/JSON/DOT/PNG/PDF
//
// [pipeline.Compute] runs the pure part of this chain. [pipeline.Runner] adds
// the model cache in front of it and the sinks behind it.
//
// # Quick Start
//
// Render a dataset file once:
//
//	import (
//	    "context"
//
//	    "github.com/matzehuels/bubbleflow/pkg/cache"
//	    "github.com/matzehuels/bubbleflow/pkg/config"
//	    "github.com/matzehuels/bubbleflow/pkg/pipeline"
//	    "github.com/matzehuels/bubbleflow/pkg/source"
//	)
//
//	cfg := config.Default()
//	env, _ := pipeline.NewEnv(cfg)
//	runner := pipeline.NewRunner(env, cache.NewNullCache(), cache.NewDefaultKeyer(), nil)
//	defer runner.Close()
//
//	src, _ := source.Open("flows.json")
//	ds, _ := src.Load(context.Background())
//	result, _ := runner.Execute(context.Background(), ds, pipeline.Options{
//	    Formats:   []string{"svg"},
//	    Threshold: 25,
//	})
//	svg := result.Artifacts["svg"]
//
// Drive the diagram interactively:
//
//	ctrl, _ := controller.New(cfg)
//	updates, cancel := ctrl.Subscribe()
//	defer cancel()
//	_ = ctrl.Load(ctx, src)
//	_ = ctrl.SelectEntity(ctx, 2)
//	snapshot := <-updates
//
// # Determinism
//
// Every stage is a pure function of its inputs: the same dataset, parameters
// and canvas produce the same render model. Ties are broken by entity id and
// flow id, never by map iteration order. This is what makes the model cache
// in [pipeline] safe.
//
// [model]: https://pkg.go.dev/github.com/matzehuels/bubbleflow/pkg/model
// [rank]: https://pkg.go.dev/github.com/matzehuels/bubbleflow/pkg/rank
// [layout]: https://pkg.go.dev/github.com/matzehuels/bubbleflow/pkg/layout
// [flow]: https://pkg.go.dev/github.com/matzehuels/bubbleflow/pkg/flow
// [geometry]: https://pkg.go.dev/github.com/matzehuels/bubbleflow/pkg/geometry
// [rules]: https://pkg.go.dev/github.com/matzehuels/bubbleflow/pkg/rules
// [view]: https://pkg.go.dev/github.com/matzehuels/bubbleflow/pkg/view
// [source]: https://pkg.go.dev/github.com/matzehuels/bubbleflow/pkg/source
// [config]: https://pkg.go.dev/github.com/matzehuels/bubbleflow/pkg/config
// [pipeline]: https://pkg.go.dev/github.com/matzehuels/bubbleflow/pkg/pipeline
// [controller]: https://pkg.go.dev/github.com/matzehuels/bubbleflow/pkg/controller
// [cache]: https://pkg.go.dev/github.com/matzehuels/bubbleflow/pkg/cache
// [sink]: https://pkg.go.dev/github.com/matzehuels/bubbleflow/pkg/sink
// [observability]: https://pkg.go.dev/github.com/matzehuels/bubbleflow/pkg/observability
// [errors]: https://pkg.go.dev/github.com/matzehuels/bubbleflow/pkg/errors
// [buildinfo]: https://pkg.go.dev/github.com/matzehuels/bubbleflow/pkg/buildinfo
//
// [model.RenderModel]: https://pkg.go.dev/github.com/matzehuels/bubbleflow/pkg/model#RenderModel
// [pipeline.Compute]: https://pkg.go.dev/github.com/matzehuels/bubbleflow/pkg/pipeline#Compute
// [pipeline.Runner]: https://pkg.go.dev/github.com/matzehuels/bubbleflow/pkg/pipeline#Runner
package pkg
