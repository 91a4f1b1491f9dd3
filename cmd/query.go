package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/agentic-research/manifestdb/internal/dblist"
	"github.com/ohler55/ojg/jp"
	"github.com/ohler55/ojg/oj"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func (a *app) categoriesCmd() *cobra.Command {
	var (
		classes  []string
		longOnly bool
	)
	c := &cobra.Command{
		Use:   "categories [manifest]",
		Short: "List the categories that have listings",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := a.manifestPath(args)
			if err != nil {
				return err
			}
			allowed, err := parseClasses(classes)
			if err != nil {
				return err
			}
			s, err := a.compileStore(cmd.Context(), path)
			if err != nil {
				return err
			}
			defer s.Close()

			cats, err := s.Categories(cmd.Context(), longOnly, allowed)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, cat := range cats {
				_, _ = fmt.Fprintf(out, "%d\t%s\n", cat.ID, cat.Name)
			}
			return nil
		},
	}
	c.Flags().StringSliceVar(&classes, "class", nil, "Only categories with listings of these classes (RNA, DNA, PROTEIN)")
	c.Flags().BoolVar(&longOnly, "long", false, "Include listings only usable with long sequences")
	return c
}

// parseClasses turns --class values into a set. No values means no filter.
func parseClasses(values []string) (*dblist.ClassSet, error) {
	if len(values) == 0 {
		return nil, nil
	}
	var cs []dblist.Class
	for _, v := range values {
		c, err := dblist.ParseClass(v)
		if err != nil {
			return nil, err
		}
		cs = append(cs, c)
	}
	return dblist.NewClassSet(cs...), nil
}

func (a *app) listingsCmd() *cobra.Command {
	var category int64
	c := &cobra.Command{
		Use:   "listings [manifest]",
		Short: "List listings, of one category or of all",
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

			ctx := cmd.Context()
			var ids []int64
			if cmd.Flags().Changed("category") {
				ids = []int64{category}
			} else {
				cats, err := s.Categories(ctx, true, nil)
				if err != nil {
					return err
				}
				for _, cat := range cats {
					ids = append(ids, cat.ID)
				}
			}

			out := cmd.OutOrStdout()
			for _, id := range ids {
				listings, err := s.Listings(ctx, id)
				if err != nil {
					return err
				}
				for _, l := range listings {
					_, _ = fmt.Fprintf(out, "%d\t%d\t%s\t%s\n", l.ID, l.CategoryID, l.Name, l.Description)
				}
			}
			return nil
		},
	}
	c.Flags().Int64Var(&category, "category", 0, "Category id")
	return c
}

func (a *app) detailCmd() *cobra.Command {
	var (
		selector string
		internal bool
	)
	c := &cobra.Command{
		Use:   "detail [manifest] <listing-id>...",
		Short: "Print listing details as JSON",
		Long: `Print the details of one or more listings as a JSON array.

The manifest may be given as the first argument, with --manifest or with
MANIFESTDB_MANIFEST. A first argument that is an integer is a listing id.

By default only the externally visible fields are shown. --select applies
a JSONPath expression to the array, e.g. '$[*].tissues'.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var positional []string
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				positional, args = args[:1], args[1:]
			}
			path, err := a.manifestPath(positional)
			if err != nil {
				return err
			}
			if len(args) == 0 {
				return fmt.Errorf("no listing ids given")
			}

			ids := make([]int64, 0, len(args))
			for _, arg := range args {
				id, err := strconv.ParseInt(arg, 10, 64)
				if err != nil {
					return fmt.Errorf("invalid listing id %q", arg)
				}
				ids = append(ids, id)
			}

			var expr jp.Expr
			if selector != "" {
				x, err := jp.ParseString(selector)
				if err != nil {
					return fmt.Errorf("invalid selector %q: %w", selector, err)
				}
				expr = x
			}

			s, err := a.compileStore(cmd.Context(), path)
			if err != nil {
				return err
			}
			defer s.Close()

			views := make([]any, len(ids))
			g, ctx := errgroup.WithContext(cmd.Context())
			g.SetLimit(a.cfg.Store.MaxReaders)
			for i, id := range ids {
				g.Go(func() error {
					rec, err := s.Detail(ctx, id)
					if err != nil {
						return err
					}
					view := rec.ExternalView()
					if internal {
						view = rec.FullView()
					}
					m := view.Map()
					m["id"] = rec.ID
					views[i] = m
					return nil
				})
			}
			if err := g.Wait(); err != nil {
				return err
			}

			var result any = views
			if expr != nil {
				result = expr.Get(views)
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), strings.TrimSpace(oj.JSON(result, &oj.Options{Indent: 2, Sort: true})))
			return nil
		},
	}
	c.Flags().StringVar(&selector, "select", "", "JSONPath expression applied to the result")
	c.Flags().BoolVar(&internal, "internal", false, "Include internal fields such as server-side paths")
	return c
}
