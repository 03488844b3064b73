package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/bubbleflow/pkg/pipeline"
	"github.com/matzehuels/bubbleflow/pkg/sink"
)

// renderOpts holds the command-line flags for the render command.
type renderOpts struct {
	output  string // output file (single format) or base path (multiple)
	formats string // comma-separated output formats
	noCache bool   // bypass the render cache
	opts    pipeline.Options
}

// renderCommand creates the render command for one-shot diagram generation.
func (c *CLI) renderCommand() *cobra.Command {
	var ro renderOpts

	cmd := &cobra.Command{
		Use:   "render <dataset>",
		Short: "Render a dataset to JSON, SVG, DOT, PNG or PDF",
		Long: `Render computes the bubble diagram of a dataset once and writes the requested artifacts.

The dataset is a JSON file, an http(s) URL or "-" for standard input.`,
		Example: `  bubbleflow render flows.json
  bubbleflow render flows.json -f svg,dot --view hub --flow-type net
  bubbleflow render https://example.com/flows.json -f png --focus 3 -o diagram.png`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ro.opts.Formats = parseFormats(ro.formats)
			return c.runRender(cmd.Context(), args[0], &ro)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&ro.output, "output", "o", "", "output file (single format) or base path (multiple)")
	f.StringVarP(&ro.formats, "format", "f", "", "output format(s): "+strings.Join(sink.Formats, ", ")+" (comma-separated)")
	f.BoolVar(&ro.noCache, "no-cache", false, "disable the render cache")
	f.BoolVar(&ro.opts.Refresh, "refresh", false, "recompute even when a cached model exists")
	c.addParamFlags(cmd, &ro.opts)

	return cmd
}

// addParamFlags registers the diagram parameter flags shared by render and explore.
func (c *CLI) addParamFlags(cmd *cobra.Command, opts *pipeline.Options) {
	f := cmd.Flags()
	f.StringVar(&opts.View, "view", "", "view name (default: first configured view)")
	f.StringVar(&opts.Metric, "metric", "", "metric (default: the view's default)")
	f.StringVarP(&opts.FlowType, "flow-type", "t", "", "flow type: in, out, net, both")
	f.Float64Var(&opts.Threshold, "threshold", 0, "hide flows below this percentile (0-100)")
	f.StringVar(&opts.FocusEntity, "focus", "", "focused entity id")
	f.StringVar(&opts.FocusFlow, "focus-flow", "", "focused flow id (e.g. \"1,2\")")
	f.BoolVar(&opts.CentreFlow, "centre", false, "aggregate flows into the centre")
	f.StringVar(&opts.Theme, "theme", "", "colour theme: light, dark")
	f.Float64Var(&opts.Width, "width", 0, "canvas width (default from config)")
	f.Float64Var(&opts.Height, "height", 0, "canvas height (default from config)")

	_ = cmd.RegisterFlagCompletionFunc("view", c.completeViews)
	_ = cmd.RegisterFlagCompletionFunc("metric", c.completeMetrics)
	_ = cmd.RegisterFlagCompletionFunc("flow-type", cobra.FixedCompletions(
		[]string{"in", "out", "net", "both"}, cobra.ShellCompDirectiveNoFileComp))
	_ = cmd.RegisterFlagCompletionFunc("theme", cobra.FixedCompletions(
		[]string{"light", "dark"}, cobra.ShellCompDirectiveNoFileComp))
}

// completeViews offers the configured view names with their titles.
func (c *CLI) completeViews(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	cfg, err := c.loadConfig()
	if err != nil {
		return nil, cobra.ShellCompDirectiveError
	}
	var out []string
	for _, v := range cfg.Views {
		out = append(out, v.Name+"\t"+v.DisplayTitle())
	}
	return out, cobra.ShellCompDirectiveNoFileComp
}

// completeMetrics offers the metrics of the view named by --view, or of
// every view when none is set.
func (c *CLI) completeMetrics(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	cfg, err := c.loadConfig()
	if err != nil {
		return nil, cobra.ShellCompDirectiveError
	}
	name, _ := cmd.Flags().GetString("view")
	for _, v := range cfg.Views {
		if v.Name == name {
			return v.SupportedMetrics, cobra.ShellCompDirectiveNoFileComp
		}
	}
	return cfg.Metrics, cobra.ShellCompDirectiveNoFileComp
}

// runRender loads the dataset, computes the diagram and writes every artifact.
func (c *CLI) runRender(ctx context.Context, input string, ro *renderOpts) error {
	ro.opts.Logger = c.Logger
	if err := ro.opts.ValidateAndSetDefaults(); err != nil {
		return err
	}

	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}
	store, keyer, err := c.newCache(cfg, ro.noCache)
	if err != nil {
		return err
	}
	runner, err := c.newRunner(cfg, store, keyer)
	if err != nil {
		store.Close()
		return err
	}
	defer runner.Close()

	src, err := c.openSource(input, store, keyer)
	if err != nil {
		return err
	}

	prog := newProgress(c.Logger)
	var spin *Spinner
	if isURL(input) {
		spin = newSpinner(ctx, os.Stderr, "Fetching "+input)
		spin.Start()
	}
	ds, err := src.Load(ctx)
	if spin != nil {
		spin.Stop()
	}
	if err != nil {
		return fmt.Errorf("load %s: %w", src.Name(), err)
	}
	c.Logger.Debug("loaded dataset", "source", src.Name(), "entities", len(ds.Entities), "lists", ds.Keys())

	result, err := runner.Execute(ctx, ds, ro.opts)
	if err != nil {
		return err
	}
	prog.done(fmt.Sprintf("Rendered %d artifact(s)", len(result.Artifacts)))

	paths, err := writeArtifacts(result.Artifacts, ro.output, input)
	if err != nil {
		return err
	}

	printSuccess("Rendered %s", src.Name())
	printStats(result.Stats, result.CacheInfo.ModelHit)
	for _, p := range paths {
		printFile(p)
	}
	if result.Model.Empty() {
		printWarning("Dataset has no entities for view %q", result.Model.Params.View)
		return nil
	}
	if input != stdinRef {
		printNextStep("Explore interactively", appName+" explore "+input)
	}
	return nil
}

// writeArtifacts writes each artifact next to base and returns the paths in
// format order.
func writeArtifacts(artifacts map[string][]byte, output, input string) ([]string, error) {
	formats := make([]string, 0, len(artifacts))
	for f := range artifacts {
		formats = append(formats, f)
	}
	sort.Strings(formats)

	var paths []string
	for _, format := range formats {
		path := outputPath(output, input, format, len(formats) == 1)
		if err := os.WriteFile(path, artifacts[format], 0o644); err != nil {
			return nil, fmt.Errorf("write %s: %w", path, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}

// outputPath derives the file for one format. A single-format render writes
// exactly to output when given. Otherwise the extension is replaced. A
// derived path never overwrites the input dataset.
func outputPath(output, input, format string, single bool) string {
	if single && output != "" {
		return output
	}
	base := basePath(output, input)
	path := base + "." + sink.Extension(format)
	if format == sink.FormatGraphviz {
		path = base + ".graphviz." + sink.Extension(format)
	}
	if filepath.Clean(path) == filepath.Clean(input) {
		path = base + ".model." + sink.Extension(format)
	}
	return path
}

// basePath derives the base output path from the output and input file paths.
// If output is empty, it strips the extension from input. URLs and stdin
// fall back to the application name in the working directory.
func basePath(output, input string) string {
	if output == "" {
		if input == stdinRef || isURL(input) {
			return appName
		}
		return strings.TrimSuffix(input, filepath.Ext(input))
	}
	ext := strings.TrimPrefix(filepath.Ext(output), ".")
	for _, f := range sink.Formats {
		if ext == sink.Extension(f) {
			return strings.TrimSuffix(output, filepath.Ext(output))
		}
	}
	return output
}
