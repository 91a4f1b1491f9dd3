package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/agentic-research/manifestdb/internal/dblist"
	"github.com/agentic-research/manifestdb/internal/logging"
	"github.com/spf13/cobra"
)

// compileStore compiles a manifest with the configured kind and store options.
func (a *app) compileStore(ctx context.Context, path string) (*dblist.Store, error) {
	return dblist.Compile(ctx, a.kind, path,
		dblist.WithTempDir(a.cfg.Store.TempDir),
		dblist.WithMaxReaders(a.cfg.Store.MaxReaders),
		dblist.WithLogger(logging.Component("dblist")),
	)
}

func (a *app) compileCmd() *cobra.Command {
	var keep string
	c := &cobra.Command{
		Use:   "compile [manifest]",
		Short: "Compile a manifest and report what was loaded",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := a.manifestPath(args)
			if err != nil {
				return err
			}
			s, err := a.compileStore(cmd.Context(), path)
			if err != nil {
				return err
			}
			defer s.Close()

			sum := s.Summary()
			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "kind:       %s\n", s.Kind().Name)
			_, _ = fmt.Fprintf(out, "manifest:   %s\n", s.SourcePath())
			_, _ = fmt.Fprintf(out, "lines:      %d\n", sum.Parse.Lines)
			_, _ = fmt.Fprintf(out, "listings:   %d\n", sum.Listings)
			_, _ = fmt.Fprintf(out, "categories: %d\n", sum.Categories)
			_, _ = fmt.Fprintf(out, "skipped:    %d\n", sum.Parse.Skipped)

			if keep != "" {
				if err := copyFile(s.Path(), keep); err != nil {
					return fmt.Errorf("keep store: %w", err)
				}
				_, _ = fmt.Fprintf(out, "store:      %s\n", keep)
			}
			return nil
		},
	}
	c.Flags().StringVar(&keep, "keep", "", "Copy the compiled store to this path before exiting")
	return c
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }() // read-only

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
