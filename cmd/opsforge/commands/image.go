package commands

import (
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/opsforge/opsforge/pkg/procedure"
)

func newImageCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "image",
		Short: "Manage software images",
	}

	cmd.AddCommand(newImageImportCommand())

	return cmd
}

func newImageImportCommand() *cobra.Command {
	var source string

	cmd := &cobra.Command{
		Use:   "import <uuid>...",
		Short: "Import images from the remote source",
		Long: `Import the named images into the local image service. Images already
active locally are skipped; a stale unactivated artifact left by an
interrupted import is removed and the import retried.`,
		Args: minArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			rt, err := newRuntime(ctx)
			if err != nil {
				return err
			}
			defer rt.close(ctx)

			if source == "" {
				source = rt.cfg.ImageSource
			}

			desired := make([]procedure.ImageManifest, 0, len(args))
			for _, uuid := range args {
				desired = append(desired, procedure.ImageManifest{UUID: uuid})
			}

			procs, err := rt.planner.PlanImageImports(ctx, source, desired)
			if err != nil {
				return err
			}

			// The planner fills in sizes it learned from stale local
			// artifacts; images never seen locally report no size.
			planned := make([]procedure.ImageManifest, 0, len(procs))
			for _, p := range procs {
				if imp, ok := p.(*procedure.ImportImageProcedure); ok {
					planned = append(planned, imp.Image)
				}
			}
			if total := procedure.TotalSize(planned); total > 0 {
				rt.log.Infof("importing %d images (%s to download)",
					len(procs), humanize.IBytes(uint64(total)))
			} else {
				rt.log.Infof("importing %d images", len(procs))
			}
			return rt.engine.Run(ctx, procs)
		},
	}

	cmd.Flags().StringVar(&source, "source", "", "remote image source URL (defaults to the configured source)")

	return cmd
}
