package sink

import (
	"context"
	"strings"

	"github.com/matzehuels/bubbleflow/pkg/errors"
	"github.com/matzehuels/bubbleflow/pkg/model"
)

// Format constants for output formats.
const (
	FormatJSON     = "json"
	FormatSVG      = "svg"
	FormatDOT      = "dot"
	FormatGraphviz = "graphviz"
	FormatPNG      = "png"
	FormatPDF      = "pdf"
)

// Formats lists every supported format.
var Formats = []string{FormatJSON, FormatSVG, FormatDOT, FormatGraphviz, FormatPNG, FormatPDF}

// ValidFormats is the set of supported output formats.
var ValidFormats = map[string]bool{
	FormatJSON:     true,
	FormatSVG:      true,
	FormatDOT:      true,
	FormatGraphviz: true,
	FormatPNG:      true,
	FormatPDF:      true,
}

// ValidateFormat checks that a format is valid.
func ValidateFormat(format string) error {
	if !ValidFormats[format] {
		return errors.New(errors.ErrCodeInvalidInput, "invalid format: %q (must be one of: %s)", format, strings.Join(Formats, ", "))
	}
	return nil
}

// Extension returns the file extension for format.
func Extension(format string) string {
	if format == FormatGraphviz {
		return "svg"
	}
	return format
}

// ContentType returns the MIME type of format.
func ContentType(format string) string {
	switch format {
	case FormatJSON:
		return "application/json"
	case FormatSVG, FormatGraphviz:
		return "image/svg+xml"
	case FormatDOT:
		return "text/vnd.graphviz"
	case FormatPNG:
		return "image/png"
	case FormatPDF:
		return "application/pdf"
	}
	return "application/octet-stream"
}

// Options holds the drawing settings that are not part of the model.
type Options struct {
	// Background fills the canvas. Empty means transparent.
	Background string
	// Text colors labels. Empty means black.
	Text string
	// Scale is the PNG scale factor (default 2.0).
	Scale float64
	// NoLabels omits entity labels.
	NoLabels bool
}

func (o Options) text() string {
	if o.Text == "" {
		return "#000000"
	}
	return o.Text
}

// Render produces format from m.
func Render(ctx context.Context, m *model.RenderModel, format string, opts Options) ([]byte, error) {
	if err := ValidateFormat(format); err != nil {
		return nil, err
	}
	switch format {
	case FormatJSON:
		return RenderJSON(m)
	case FormatSVG:
		return RenderSVG(m, opts), nil
	case FormatDOT:
		return []byte(ToDOT(m, opts)), nil
	case FormatGraphviz:
		return RenderGraphviz(ctx, ToDOT(m, opts))
	case FormatPNG:
		scale := opts.Scale
		if scale <= 0 {
			scale = 2.0
		}
		return ToPNG(ctx, RenderSVG(m, opts), scale)
	case FormatPDF:
		return ToPDF(ctx, RenderSVG(m, opts))
	}
	return nil, errors.New(errors.ErrCodeInternal, "unhandled format %q", format)
}

// RenderJSON exports the render model as indented JSON.
func RenderJSON(m *model.RenderModel) ([]byte, error) {
	return model.MarshalRenderModel(m)
}
