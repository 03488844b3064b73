package cli

import (
	"context"
	stderrors "errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/matzehuels/bubbleflow/internal/server"
	"github.com/matzehuels/bubbleflow/pkg/controller"
	"github.com/matzehuels/bubbleflow/pkg/pipeline"
)

// shutdownTimeout bounds graceful shutdown of the HTTP server.
const shutdownTimeout = 10 * time.Second

// serveOpts holds the command-line flags for the serve command.
type serveOpts struct {
	addr    string
	dataset string
	origins []string
	noCache bool
	opts    pipeline.Options
}

// serveCommand starts the HTTP API.
func (c *CLI) serveCommand() *cobra.Command {
	so := serveOpts{addr: "127.0.0.1:8080"}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the interaction API over HTTP",
		Long: `Serve exposes one shared interaction controller over HTTP, together with a
stateless render endpoint. A dataset can be preloaded with --dataset or
posted to /api/dataset later.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runServe(cmd.Context(), &so)
		},
	}

	f := cmd.Flags()
	f.StringVar(&so.addr, "addr", so.addr, "listen address")
	f.StringVarP(&so.dataset, "dataset", "d", "", "dataset to load at startup (file or URL)")
	f.StringSliceVar(&so.origins, "cors-origin", nil, "allowed CORS origin (repeatable, * for any)")
	f.BoolVar(&so.noCache, "no-cache", false, "disable the render cache")
	c.addParamFlags(cmd, &so.opts)

	return cmd
}

func (c *CLI) runServe(ctx context.Context, so *serveOpts) error {
	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}
	store, keyer, err := c.newCache(cfg, so.noCache)
	if err != nil {
		return err
	}
	runner, err := c.newRunner(cfg, store, keyer)
	if err != nil {
		store.Close()
		return err
	}
	defer runner.Close()

	ctrl, err := controller.New(cfg,
		controller.WithLogger(c.Logger),
		controller.WithHooks(c.hooks()),
		controller.WithParams(so.opts),
		controller.WithCanvas(so.opts.Width, so.opts.Height))
	if err != nil {
		return err
	}

	if so.dataset != "" {
		src, err := c.openSource(so.dataset, store, keyer)
		if err != nil {
			return err
		}
		if err := ctrl.Load(ctx, src); err != nil {
			return fmt.Errorf("load %s: %w", src.Name(), err)
		}
	}

	srv := &http.Server{
		Addr: so.addr,
		Handler: server.New(server.Options{
			Controller:     ctrl,
			Runner:         runner,
			Logger:         c.Logger,
			AllowedOrigins: so.origins,
		}),
		ReadHeaderTimeout: 10 * time.Second,
		// Event streams end with the command context.
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		printSuccess("Listening on http://%s", so.addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if stderrors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		c.Logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return nil
	}
}
