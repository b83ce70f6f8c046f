package serve_lsp

import (
	"context"
	"net"
	"os"

	"github.com/creachadair/jrpc2"
	"github.com/creachadair/jrpc2/channel"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/tmplts/pkg/config"
	"github.com/walteh/tmplts/pkg/engine"
	"github.com/walteh/tmplts/pkg/lsp"
	"github.com/walteh/tmplts/pkg/service"
	"github.com/walteh/tmplts/pkg/tsserver"
)

type Handler struct {
	debug   bool
	watch   bool
	listen  string
	version string
}

func NewServeLSPCommand(version string) *cobra.Command {
	me := &Handler{version: version}

	cmd := &cobra.Command{
		Use:   "serve-lsp",
		Short: "start the language server on stdin/stdout",
	}

	cmd.Flags().BoolVar(&me.debug, "debug", false, "forward logs to the client and write virtual files to disk")
	cmd.Flags().BoolVar(&me.watch, "watch", true, "watch template directories for companion changes")
	cmd.Flags().StringVar(&me.listen, "listen", "", "serve every connection to this unix socket instead of stdin/stdout (see proxy)")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		return me.Run(cmd.Context())
	}

	return cmd
}

func (me *Handler) Run(ctx context.Context) error {
	cfg := config.FromContext(ctx)
	if me.debug {
		cfg.DebugVirtualFiles = true
	}
	fs := afero.NewOsFs()

	client, err := tsserver.Start(ctx, cfg.TsserverPath, cfg.TsserverArgs, tsserver.Options{Fs: fs})
	if err != nil {
		return errors.Errorf("starting analysis engine: %w", err)
	}
	defer func() {
		if err := client.Close(ctx); err != nil {
			zerolog.Ctx(ctx).Debug().Err(err).Msg("closing tsserver")
		}
	}()

	if me.listen != "" {
		return me.serveSocket(ctx, cfg, fs, client)
	}
	return me.serve(ctx, cfg, fs, client, channel.LSP(os.Stdin, os.Stdout))
}

// serve runs one editor session. Sessions share the engine but each has its
// own registry of virtual files.
func (me *Handler) serve(ctx context.Context, cfg *config.Config, fs afero.Fs, eng engine.Engine, ch channel.Channel) error {
	svc := service.New(cfg.Registry(fs), eng, cfg.ServiceOptions(fs))
	server := lsp.NewServer(svc, lsp.Options{Version: me.version, ForwardLogs: me.debug, WatchFiles: me.watch})

	opts := &jrpc2.ServerOptions{
		RPCLog: lsp.RPCLogger{},
	}

	if err := server.Serve(ctx, ch, opts); err != nil {
		return errors.Errorf("error running language server: %w", err)
	}

	return nil
}

func (me *Handler) serveSocket(ctx context.Context, cfg *config.Config, fs afero.Fs, eng engine.Engine) error {
	logger := zerolog.Ctx(ctx)

	_ = os.Remove(me.listen)
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "unix", me.listen)
	if err != nil {
		return errors.Errorf("listening on %s: %w", me.listen, err)
	}
	defer ln.Close()

	go func() {
		<-ctx.Done()
		_ = ln.Close()
	}()

	logger.Info().Str("socket", me.listen).Msg("waiting for editor connections")

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return errors.Errorf("accepting connection: %w", err)
		}
		go func() {
			defer conn.Close()
			logger.Info().Msg("editor connected")
			if err := me.serve(ctx, cfg, fs, eng, channel.LSP(conn, conn)); err != nil {
				logger.Warn().Err(err).Msg("session ended")
			}
		}()
	}
}
