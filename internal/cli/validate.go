package cli

import (
	"context"
	stderrors "errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/bubbleflow/pkg/cache"
	"github.com/matzehuels/bubbleflow/pkg/errors"
)

// validateCommand checks datasets against the schema and the configured views.
func (c *CLI) validateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <dataset>...",
		Short: "Check datasets and the configuration without rendering",
		Long: `Validate parses each dataset, reports every schema violation at once and
checks that the flow lists referenced by the configured views are present.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runValidate(cmd.Context(), args)
		},
	}
}

func (c *CLI) runValidate(ctx context.Context, refs []string) error {
	cfg, err := c.loadConfig()
	if err != nil {
		printError("Configuration is invalid")
		printViolations(err)
		return err
	}
	views, err := cfg.ViewSet()
	if err != nil {
		return err
	}
	printSuccess("Configuration OK (%d views)", len(views.All()))

	failed := 0
	for _, ref := range refs {
		src, err := c.openSource(ref, cache.NewNullCache(), nil)
		if err != nil {
			return err
		}
		ds, err := src.Load(ctx)
		if err != nil {
			if stderrors.Is(err, context.Canceled) {
				return err
			}
			failed++
			printError("%s", src.Name())
			printViolations(err)
			continue
		}

		printSuccess("%s", src.Name())
		printKeyValue("entities", strconv.Itoa(len(ds.Entities)))
		printKeyValue("flow lists", strings.Join(ds.Keys(), ", "))
		printKeyValue("metrics", strings.Join(ds.Metrics(), ", "))
		if err := ds.CheckViews(views); err != nil {
			printWarning("Some views have no flow list in this dataset")
			printViolations(err)
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d datasets invalid", failed, len(refs))
	}
	return nil
}

// printViolations lists each violation of a validation error, or the error
// message otherwise.
func printViolations(err error) {
	var ve *errors.ValidationError
	if stderrors.As(err, &ve) {
		for _, v := range ve.Violations {
			printDetail("%s", v.String())
		}
		return
	}
	printDetail("%s", errors.UserMessage(err))
}
