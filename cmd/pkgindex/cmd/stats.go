package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/pkgindex/internal/coordinates"
	pkgerrors "github.com/Aman-CERP/pkgindex/internal/errors"
	"github.com/Aman-CERP/pkgindex/internal/output"
	"github.com/Aman-CERP/pkgindex/internal/store"
)

func newStatsCmd(g *globalOptions) *cobra.Command {
	var (
		storage    string
		path       string
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "stats [repository-id]",
		Short: "Show what the artifact store holds",
		Long: `Without arguments, list the repositories in the artifact store.
With a repository id, show its entry, group and version counts.
With --path, show the stored entry of one file instead.`,
		Example: `  pkgindex stats
  pkgindex stats releases
  pkgindex stats releases --path org/apache/commons/commons-lang3/3.14.0/commons-lang3-3.14.0.jar`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if path != "" {
				if len(args) == 0 {
					return pkgerrors.ValidationError("--path needs a repository id", nil)
				}
				return runEntryStats(cmd.Context(), cmd, g, args[0], storage, path, jsonOutput)
			}
			return runStats(cmd.Context(), cmd, g, args, storage, jsonOutput)
		},
	}

	cmd.Flags().StringVar(&storage, "storage", "", "Storage id (overrides the declared storage)")
	cmd.Flags().StringVar(&path, "path", "", "Show the stored entry of this repository-relative path")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

func runStats(ctx context.Context, cmd *cobra.Command, g *globalOptions, args []string, storage string, jsonOutput bool) error {
	cfg, err := g.loadConfig()
	if err != nil {
		return err
	}
	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	out := output.New(cmd.OutOrStdout())

	if len(args) == 0 {
		refs, err := st.Repositories(ctx)
		if err != nil {
			return err
		}
		if jsonOutput {
			if refs == nil {
				refs = []store.RepositoryRef{}
			}
			return out.JSON(refs)
		}
		if len(refs) == 0 {
			out.Status("📭", "The artifact store is empty. Run 'pkgindex ingest' first.")
			return nil
		}
		rows := make([][]string, len(refs))
		for i, r := range refs {
			rows[i] = []string{r.StorageID, r.RepositoryID}
		}
		out.Table([]string{"STORAGE", "REPOSITORY"}, rows)
		return nil
	}

	target := resolveTarget(cfg, storage, args[0])
	stats, err := st.RepositoryStats(ctx, target.StorageID, target.RepositoryID)
	if err != nil {
		return err
	}
	if jsonOutput {
		return out.JSON(stats)
	}

	out.Statusf("📊", "%s", target)
	fields := []output.Field{
		{Key: "entries", Value: stats.Entries},
		{Key: "groups", Value: stats.Groups},
		{Key: "versions", Value: stats.Versions},
	}
	formats := make([]string, 0, len(stats.ByFormat))
	for f := range stats.ByFormat {
		formats = append(formats, f)
	}
	sort.Strings(formats)
	for _, f := range formats {
		fields = append(fields, output.Field{Key: fmt.Sprintf("format %s", f), Value: stats.ByFormat[f]})
	}
	out.KeyValues(fields...)
	return nil
}

// entryView is the JSON shape of one stored entry.
type entryView struct {
	StorageID    string            `json:"storage_id"`
	RepositoryID string            `json:"repository_id"`
	Path         string            `json:"path"`
	Coordinates  json.RawMessage   `json:"coordinates"`
	Metadata     map[string]string `json:"metadata"`
	CreatedAt    string            `json:"created_at"`
}

func runEntryStats(ctx context.Context, cmd *cobra.Command, g *globalOptions, repositoryID, storage, path string, jsonOutput bool) error {
	cfg, err := g.loadConfig()
	if err != nil {
		return err
	}
	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	target := resolveTarget(cfg, storage, repositoryID)
	e, err := st.Entry(ctx, target.StorageID, target.RepositoryID, path)
	if err != nil {
		return err
	}

	out := output.New(cmd.OutOrStdout())
	if e == nil {
		if jsonOutput {
			return out.JSON(nil)
		}
		out.Warningf("%s holds no entry for %s", target, path)
		return nil
	}

	coords, err := coordinates.Encode(e.Coordinates)
	if err != nil {
		return fmt.Errorf("failed to encode coordinates: %w", err)
	}
	view := entryView{
		StorageID:    e.StorageID,
		RepositoryID: e.RepositoryID,
		Path:         e.Path,
		Coordinates:  coords,
		Metadata:     e.Metadata,
		CreatedAt:    e.CreatedAt.UTC().Format(time.RFC3339),
	}
	if jsonOutput {
		return out.JSON(view)
	}

	out.Statusf("📦", "%s: %s", target, e.Path)
	fields := []output.Field{
		{Key: "group", Value: e.Coordinates.GroupKey()},
		{Key: "version", Value: e.Coordinates.Version()},
		{Key: "stored", Value: view.CreatedAt},
	}
	keys := make([]string, 0, len(e.Metadata))
	for k := range e.Metadata {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fields = append(fields, output.Field{Key: k, Value: e.Metadata[k]})
	}
	out.KeyValues(fields...)

	pretty, err := json.MarshalIndent(json.RawMessage(coords), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to format coordinates: %w", err)
	}
	out.Newline()
	out.Status("🧭", "coordinates")
	out.Code(string(pretty))
	return nil
}
