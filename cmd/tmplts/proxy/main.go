package proxy

import (
	"context"
	"io"
	"net"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"
)

type Handler struct{}

// NewProxyCommand connects an editor's stdio to a language server started
// with `serve-lsp --listen`, so the server can outlive editor restarts and be
// run under a debugger.
func NewProxyCommand() *cobra.Command {
	me := &Handler{}

	cmd := &cobra.Command{
		Use:   "proxy <socket-path>",
		Short: "bridge stdin/stdout to a language server listening on a unix socket",
		Args:  cobra.ExactArgs(1),
	}

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		return me.Run(cmd.Context(), args[0], os.Stdin, os.Stdout)
	}

	return cmd
}

// Run copies in to the socket and the socket to out. It returns once the
// server side closes, or when ctx is done.
func (me *Handler) Run(ctx context.Context, socketPath string, in io.Reader, out io.Writer) error {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "unix", socketPath)
	if err != nil {
		return errors.Errorf("connecting to %s: %w", socketPath, err)
	}
	defer conn.Close()

	zerolog.Ctx(ctx).Debug().Str("socket", socketPath).Msg("proxy connected")

	go func() {
		if _, err := io.Copy(conn, in); err != nil {
			zerolog.Ctx(ctx).Debug().Err(err).Msg("copying stdin to socket")
		}
		// let the server see the end of input while its replies drain
		if uc, ok := conn.(*net.UnixConn); ok {
			_ = uc.CloseWrite()
		}
	}()

	done := make(chan error, 1)
	go func() {
		_, err := io.Copy(out, conn)
		done <- err
	}()

	select {
	case err := <-done:
		if err != nil {
			return errors.Errorf("copying socket to stdout: %w", err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
