package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/matzehuels/bubbleflow/pkg/model"
	"github.com/matzehuels/bubbleflow/pkg/view"
)

// viewsCommand lists the configured views.
func (c *CLI) viewsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "views",
		Short: "List the configured views",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			views, err := cfg.ViewSet()
			if err != nil {
				return err
			}
			writeViewTable(cmd.OutOrStdout(), views)
			return nil
		},
	}
}

// writeViewTable renders views as a table. The default view is marked.
func writeViewTable(w io.Writer, views *view.Set) {
	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)

	def := views.Default().Name
	rows := [][]string{}
	for _, v := range views.All() {
		name := v.Name
		if name == def {
			name += " *"
		}
		centre := ""
		if v.SupportsCentreFlow {
			centre = "✓"
		}
		rows = append(rows, []string{
			name,
			v.DisplayTitle(),
			v.DataSourceKey,
			markDefault(v.SupportedMetrics, v.DefaultMetric),
			markDefault(flowTypeNames(v.SupportedFlowTypes), string(v.DefaultFlowType)),
			centre,
		})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("View", "Title", "Data", "Metrics", "Flow types", "Centre").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return headerStyle
			}
			if col == 0 {
				return lipgloss.NewStyle().Foreground(colorCyan)
			}
			return lipgloss.NewStyle()
		})

	fmt.Fprintln(w, t.Render())
	fmt.Fprintln(w, StyleDim.Render("* default view; underlined values are view defaults"))
}

// markDefault joins values, underlining the default one.
func markDefault(values []string, def string) string {
	out := make([]string, len(values))
	for i, v := range values {
		if v == def {
			out[i] = lipgloss.NewStyle().Underline(true).Render(v)
		} else {
			out[i] = v
		}
	}
	return strings.Join(out, ", ")
}

func flowTypeNames(fts []model.FlowType) []string {
	out := make([]string, len(fts))
	for i, ft := range fts {
		out[i] = string(ft)
	}
	return out
}
