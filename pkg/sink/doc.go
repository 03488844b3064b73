// Package sink provides output format renderers for render models.
//
// # Overview
//
// A "sink" transforms a computed [model.RenderModel] into a final output
// format. This package provides renderers for:
//
//   - JSON: the render model itself, for external drawing layers
//   - SVG: a self-contained drawing with tooltips
//   - DOT: a Graphviz graph with pinned entity positions
//   - Graphviz: SVG produced by Graphviz (neato) from the DOT output
//   - PDF: Print-ready output (requires rsvg-convert)
//   - PNG: Raster image output (requires rsvg-convert)
//
// Sinks never compute anything: every position, color, thickness and marker
// is read from the model.
//
// # Usage
//
//	data, err := sink.Render(ctx, m, sink.FormatSVG, sink.Options{Background: "#ffffff"})
//
// or call a format directly:
//
//	svg := sink.RenderSVG(m, opts)
//	dot := sink.ToDOT(m, opts)
package sink
