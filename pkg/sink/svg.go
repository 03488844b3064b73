package sink

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strings"

	"github.com/matzehuels/bubbleflow/pkg/model"
)

const flowInteractionCSS = `
    .segment { transition: stroke-opacity 0.2s ease; }
    .segment:hover { stroke-opacity: 1; }
    .entity-label { pointer-events: none; }`

// RenderSVG draws m as a standalone SVG document. Segments are drawn below
// entities; each element carries its tooltip as a <title>.
func RenderSVG(m *model.RenderModel, opts Options) []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.1f %.1f" width="%.0f" height="%.0f">`+"\n",
		m.Width, m.Height, m.Width, m.Height)
	fmt.Fprintf(&buf, "  <style>%s\n  </style>\n", flowInteractionCSS)

	renderMarkerDefs(&buf, m.Segments)
	if opts.Background != "" {
		fmt.Fprintf(&buf, `  <rect x="0" y="0" width="%.1f" height="%.1f" fill="%s"/>`+"\n", m.Width, m.Height, opts.Background)
	}

	buf.WriteString("  <g class=\"flows\">\n")
	for _, s := range m.Segments {
		renderSegment(&buf, s)
	}
	buf.WriteString("  </g>\n")

	buf.WriteString("  <g class=\"entities\">\n")
	for _, e := range m.Entities {
		renderEntity(&buf, e, opts)
	}
	buf.WriteString("  </g>\n")

	buf.WriteString("</svg>\n")
	return buf.Bytes()
}

// markerID names the arrowhead of one color.
func markerID(color string) string {
	return "arrow-" + strings.TrimPrefix(color, "#")
}

func renderMarkerDefs(buf *bytes.Buffer, segments []model.FlowSegment) {
	seen := make(map[string]bool)
	var colors []string
	for _, s := range segments {
		if s.Marker == model.MarkerNone || seen[s.Color] {
			continue
		}
		seen[s.Color] = true
		colors = append(colors, s.Color)
	}
	if len(colors) == 0 {
		return
	}
	buf.WriteString("  <defs>\n")
	for _, c := range colors {
		fmt.Fprintf(buf, `    <marker id="%s" viewBox="0 0 10 10" refX="9" refY="5" markerWidth="4" markerHeight="4" orient="auto-start-reverse">`+
			`<path d="M0,0 L10,5 L0,10 z" fill="%s"/></marker>`+"\n", markerID(c), c)
	}
	buf.WriteString("  </defs>\n")
}

func renderSegment(buf *bytes.Buffer, s model.FlowSegment) {
	var markers string
	ref := fmt.Sprintf("url(#%s)", markerID(s.Color))
	switch s.Marker {
	case model.MarkerStart:
		markers = fmt.Sprintf(` marker-start="%s"`, ref)
	case model.MarkerEnd:
		markers = fmt.Sprintf(` marker-end="%s"`, ref)
	case model.MarkerBoth:
		markers = fmt.Sprintf(` marker-start="%s" marker-end="%s"`, ref, ref)
	}
	fmt.Fprintf(buf, `    <line id="segment-%s" class="segment %s" x1="%.2f" y1="%.2f" x2="%.2f" y2="%.2f" stroke="%s" stroke-width="%.2f" stroke-opacity="%.2f" stroke-linecap="round"%s>`,
		escapeXML(s.ID), s.Direction, s.StartPoint.X, s.StartPoint.Y, s.EndPoint.X, s.EndPoint.Y,
		s.Color, s.Thickness, s.Opacity, markers)
	if s.Tooltip != "" {
		fmt.Fprintf(buf, "<title>%s</title>", escapeXML(s.Tooltip))
	}
	buf.WriteString("</line>\n")
}

func renderEntity(buf *bytes.Buffer, e model.Entity, opts Options) {
	class := "entity"
	if e.IsCentre {
		class += " centre"
	}
	if e.Focus {
		class += " focus"
	}
	fmt.Fprintf(buf, `    <circle id="entity-%s" class="%s" cx="%.2f" cy="%.2f" r="%.2f" fill="%s" fill-opacity="%.2f">`,
		e.ID, class, e.Position.X, e.Position.Y, e.Radius, e.Color, e.Opacity)
	if e.Tooltip != "" {
		fmt.Fprintf(buf, "<title>%s</title>", escapeXML(e.Tooltip))
	}
	buf.WriteString("</circle>\n")
	if opts.NoLabels || e.Label == "" {
		return
	}
	weight := "normal"
	if e.Focus {
		weight = "bold"
	}
	fmt.Fprintf(buf, `    <text class="entity-label" x="%.2f" y="%.2f" text-anchor="middle" dominant-baseline="central" font-family="sans-serif" font-size="11" font-weight="%s" fill="%s" fill-opacity="%.2f">%s</text>`+"\n",
		e.Position.X, e.Position.Y, weight, opts.text(), e.Opacity, escapeXML(e.Label))
}

func escapeXML(s string) string {
	var buf bytes.Buffer
	xml.EscapeText(&buf, []byte(s))
	return buf.String()
}
