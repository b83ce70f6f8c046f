package check

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"
	"golang.org/x/sync/errgroup"

	"github.com/walteh/tmplts/pkg/config"
	"github.com/walteh/tmplts/pkg/diagnostic"
	"github.com/walteh/tmplts/pkg/finder"
	"github.com/walteh/tmplts/pkg/position"
	"github.com/walteh/tmplts/pkg/service"
	"github.com/walteh/tmplts/pkg/tsserver"
)

var ErrDiagnosticsFound = errors.Base("diagnostics found")

type Handler struct {
	format string
	fs     afero.Fs
}

func NewCheckCommand() *cobra.Command {
	me := &Handler{fs: afero.NewOsFs()}

	cmd := &cobra.Command{
		Use:   "check [paths...]",
		Short: "report diagnostics for templates without an editor",
	}

	cmd.Flags().StringVar(&me.format, "format", "text", "output format (text or json)")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			args = []string{"."}
		}
		return me.Run(cmd.Context(), cmd.OutOrStdout(), args)
	}

	return cmd
}

func (me *Handler) Run(ctx context.Context, out io.Writer, paths []string) error {
	cfg := config.FromContext(ctx)

	formatter, err := diagnostic.FormatterFor(me.format)
	if err != nil {
		return err
	}

	abs := make([]string, 0, len(paths))
	for _, p := range paths {
		a, err := filepath.Abs(p)
		if err != nil {
			return errors.Errorf("resolving %s: %w", p, err)
		}
		abs = append(abs, a)
	}

	files, err := finder.NewDefaultFinder(me.fs, cfg.Naming(), cfg.Exclude...).FindAll(ctx, abs)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		zerolog.Ctx(ctx).Info().Strs("paths", paths).Msg("no templates found")
		return nil
	}

	client, err := tsserver.Start(ctx, cfg.TsserverPath, cfg.TsserverArgs, tsserver.Options{Fs: me.fs})
	if err != nil {
		return errors.Errorf("starting analysis engine: %w", err)
	}
	defer func() {
		if err := client.Close(ctx); err != nil {
			zerolog.Ctx(ctx).Debug().Err(err).Msg("closing tsserver")
		}
	}()

	svc := service.New(cfg.Registry(me.fs), client, cfg.ServiceOptions(me.fs))

	return me.check(ctx, out, svc, formatter, files)
}

// maxParallel bounds the templates synthesized and checked at once.
const maxParallel = 8

func (me *Handler) check(ctx context.Context, out io.Writer, svc *service.Service, formatter diagnostic.Formatter, files []finder.FileInfo) error {
	results := make([][]diagnostic.Diagnostic, len(files))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallel)
	for i, f := range files {
		g.Go(func() error {
			diags, err := checkOne(ctx, svc, f)
			if err != nil {
				return err
			}
			results[i] = diags
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	wd, _ := os.Getwd()
	total := 0
	for i, f := range files {
		total += len(results[i])

		display := f.Path
		if rel, err := filepath.Rel(wd, f.Path); err == nil && wd != "" && !strings.HasPrefix(rel, "..") {
			display = rel
		}
		data, err := formatter.Format(display, results[i])
		if err != nil {
			return err
		}
		if _, err := out.Write(data); err != nil {
			return errors.Errorf("writing output: %w", err)
		}
	}

	zerolog.Ctx(ctx).Debug().Int("templates", len(files)).Int("diagnostics", total).Msg("check finished")
	if total > 0 {
		return errors.Errorf("%w: %d in %d templates", ErrDiagnosticsFound, total, len(files))
	}
	return nil
}

func checkOne(ctx context.Context, svc *service.Service, f finder.FileInfo) ([]diagnostic.Diagnostic, error) {
	doc := position.NewDocument(position.PathToURI(f.Path), 0, f.Content)
	vf, err := svc.Sync(ctx, doc)
	if err != nil {
		return nil, errors.Errorf("synthesizing %s: %w", f.Path, err)
	}
	if !vf.Synthesized {
		zerolog.Ctx(ctx).Warn().Str("template", f.Path).Str("class", vf.HostClassName).Msg("no companion class found, skipping")
		return nil, nil
	}
	diags, err := svc.Diagnostics(ctx, doc)
	if err != nil {
		return nil, errors.Errorf("checking %s: %w", f.Path, err)
	}
	return diags, nil
}
