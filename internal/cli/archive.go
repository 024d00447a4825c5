package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/agenthands/snapdiff/internal/core"
	"github.com/agenthands/snapdiff/internal/core/model"
	"github.com/agenthands/snapdiff/internal/driver"
	"github.com/agenthands/snapdiff/internal/observability"
)

func newArchiveCommand() *cobra.Command {
	var (
		name    string
		replace bool
		d       model.ProjectDescriptor
		kind    string
	)

	cmd := &cobra.Command{
		Use:   "archive",
		Short: "Capture a snapshot and store it in Memgraph for later graph comparisons",
		Example: `  snapdiff archive --name nightly --kind remote --endpoint 5210 --view-name "Level 1"
  snapdiff archive --name baseline --kind file --path export.json --replace`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := configFrom(cmd)
			if cfg.Memgraph.URI == "" {
				return fmt.Errorf("archive needs a Memgraph instance (set MEMGRAPH_URI or [memgraph] uri)")
			}
			d.SourceKind = model.SourceKind(kind)

			graph, closeGraph, err := openGraph(cfg)
			if err != nil {
				return err
			}
			defer closeGraph()

			engine := core.Build(cfg, graph, observability.NewMetrics())
			res, issue := engine.Resolver.Resolve(cmd.Context(), d, model.SnapshotOptions{
				CategoryIDs:     cfg.Compare.DefaultCategories,
				IncludeAnalytic: cfg.Compare.IncludeAnalytic,
				IncludeHidden:   cfg.Compare.IncludeHidden,
			})
			if issue != nil {
				return issue
			}

			ctx := cmd.Context()
			if replace {
				if err := driver.DeleteSnapshot(ctx, graph, name); err != nil {
					return err
				}
			}
			if err := driver.SaveSnapshot(ctx, graph, name, projectLabel(res.Ref()), res.Snapshot.Records); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Archived %d records as %q\n", len(res.Snapshot.Records), name)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Snapshot name in the graph store")
	cmd.Flags().BoolVar(&replace, "replace", false, "Delete an existing snapshot with the same name first")
	cmd.Flags().StringVar(&kind, "kind", string(model.SourceFile), "Source kind (remote|file|lineDelimitedFile)")
	cmd.Flags().StringVar(&d.Endpoint, "endpoint", "", "Remote endpoint (URL, host:port or port)")
	cmd.Flags().StringVar(&d.ViewID, "view-id", "", "Remote view id")
	cmd.Flags().StringVar(&d.ViewName, "view-name", "", "Remote view name")
	cmd.Flags().StringVar(&d.Path, "path", "", "File path for file sources")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}
