package virtual_source

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/tmplts/pkg/config"
	"github.com/walteh/tmplts/pkg/virtual"
)

type Handler struct {
	write  bool
	ranges bool
	fs     afero.Fs
}

// NewVirtualCommand prints the virtual source synthesized for a template.
func NewVirtualCommand() *cobra.Command {
	me := &Handler{fs: afero.NewOsFs()}

	cmd := &cobra.Command{
		Use:   "virtual <file.template>",
		Short: "print the virtual source synthesized for a template",
		Args:  cobra.ExactArgs(1),
	}

	cmd.Flags().BoolVar(&me.write, "write", false, "also write the virtual source and its range table next to the template")
	cmd.Flags().BoolVar(&me.ranges, "ranges", true, "print the range table after the source")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		return me.Run(cmd.Context(), cmd.OutOrStdout(), args[0])
	}

	return cmd
}

func (me *Handler) Run(ctx context.Context, out io.Writer, path string) error {
	cfg := config.FromContext(ctx)
	if me.write {
		cfg.DebugVirtualFiles = true
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return errors.Errorf("resolving %s: %w", path, err)
	}
	if !cfg.Naming().IsTemplate(abs) {
		return errors.Errorf("%s is not a %s file", path, cfg.TemplateExtension)
	}
	text, err := afero.ReadFile(me.fs, abs)
	if err != nil {
		return errors.Errorf("reading template: %w", err)
	}

	f, err := cfg.Registry(me.fs).Upsert(ctx, abs, string(text))
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "// %s\n%s", f.Path, f.VirtualContent)
	if !me.ranges {
		return nil
	}
	fmt.Fprintln(out)
	printRanges(out, f)
	return nil
}

func printRanges(out io.Writer, f virtual.File) {
	fmt.Fprintf(out, "// class:   %s\n", f.HostClassName)
	fmt.Fprintf(out, "// host:    %s\n", f.HostSourcePath)
	fmt.Fprintf(out, "// body:    %s\n", f.Ranges.Body)
	fmt.Fprintf(out, "// import:  %s\n", f.Ranges.Import)
	fmt.Fprintf(out, "// valid:   %t\n", f.IsBodyOnlyValid)
}
