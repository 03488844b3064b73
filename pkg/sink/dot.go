package sink

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/bubbleflow/pkg/model"
)

// pointsPerInch converts canvas pixels to Graphviz inches.
const pointsPerInch = 72.0

// ToDOT converts a render model to Graphviz DOT format.
//
// Entities become fixed-size circles pinned at their canvas position (the
// y axis is flipped, Graphviz grows upwards). Every segment becomes one edge
// between its flow's endpoints carrying the segment's color, opacity,
// thickness and marker. The result is meant for the neato engine; see
// [RenderGraphviz].
func ToDOT(m *model.RenderModel, opts Options) string {
	var buf bytes.Buffer
	buf.WriteString("digraph bubbleflow {\n")
	buf.WriteString("  layout=neato;\n")
	buf.WriteString("  notranslate=true;\n")
	buf.WriteString("  splines=line;\n")
	if opts.Background != "" {
		fmt.Fprintf(&buf, "  bgcolor=%q;\n", opts.Background)
	} else {
		buf.WriteString("  bgcolor=\"transparent\";\n")
	}
	fmt.Fprintf(&buf, "  node [shape=circle, style=filled, fixedsize=true, penwidth=0, fontsize=10, fontname=\"sans-serif\", fontcolor=%q];\n", opts.text())
	buf.WriteString("  edge [arrowsize=0.6];\n")
	buf.WriteString("\n")

	for _, e := range m.Entities {
		label := e.Label
		if opts.NoLabels {
			label = ""
		}
		attrs := []string{
			fmt.Sprintf("label=%q", label),
			fmt.Sprintf("pos=\"%.3f,%.3f!\"", e.Position.X/pointsPerInch, (m.Height-e.Position.Y)/pointsPerInch),
			fmt.Sprintf("width=%.3f", 2*e.Radius/pointsPerInch),
			fmt.Sprintf("fillcolor=%q", withAlpha(e.Color, e.Opacity)),
		}
		if e.Tooltip != "" {
			attrs = append(attrs, fmt.Sprintf("tooltip=%q", e.Tooltip))
		}
		fmt.Fprintf(&buf, "  %q [%s];\n", e.ID.String(), strings.Join(attrs, ", "))
	}

	buf.WriteString("\n")
	for _, s := range m.Segments {
		f, ok := m.Flow(s.ParentFlowID)
		if !ok {
			continue
		}
		attrs := []string{
			fmt.Sprintf("id=%q", s.ID),
			fmt.Sprintf("color=%q", withAlpha(s.Color, s.Opacity)),
			fmt.Sprintf("penwidth=%.2f", s.Thickness),
			"dir=" + dotDir(s.Marker),
		}
		if len(s.Labels) > 0 {
			attrs = append(attrs, fmt.Sprintf("xlabel=%q", strings.Join(s.Labels, " ")))
		}
		if s.Tooltip != "" {
			attrs = append(attrs, fmt.Sprintf("tooltip=%q", s.Tooltip))
		}
		fmt.Fprintf(&buf, "  %q -> %q [%s];\n", f.From.String(), f.To.String(), strings.Join(attrs, ", "))
	}

	buf.WriteString("}\n")
	return buf.String()
}

func dotDir(mk model.Marker) string {
	switch mk {
	case model.MarkerEnd:
		return "forward"
	case model.MarkerStart:
		return "back"
	case model.MarkerBoth:
		return "both"
	}
	return "none"
}

// withAlpha appends an alpha byte to a #rrggbb color.
func withAlpha(color string, opacity float64) string {
	if len(color) != 7 || color[0] != '#' {
		return color
	}
	if opacity < 0 {
		opacity = 0
	}
	if opacity > 1 {
		opacity = 1
	}
	return fmt.Sprintf("%s%02x", color, int(opacity*255+0.5))
}

// RenderGraphviz renders a DOT graph to SVG using the Graphviz neato engine.
func RenderGraphviz(ctx context.Context, dot string) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()
	g.SetLayout("neato")

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return normalizeViewBox(buf.Bytes()), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

// normalizeViewBox replaces Graphviz's <svg> tag with one whose viewBox
// starts at the origin, so the output scales like [RenderSVG]'s.
func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}

	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}

	tag := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`,
		w, h, w, h)
	return svgTagRe.ReplaceAll(svg, []byte(tag))
}
