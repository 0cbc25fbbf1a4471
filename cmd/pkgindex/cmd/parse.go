package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/pkgindex/internal/coordinates"
	"github.com/Aman-CERP/pkgindex/internal/output"
)

func newParseCmd() *cobra.Command {
	var (
		format     string
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "parse <path>...",
		Short: "Derive coordinates from repository paths",
		Long:  `Parse repository-relative paths with the grammar of a format and print the coordinates.`,
		Example: `  pkgindex parse --format maven org/apache/commons/commons-lang3/3.14.0/commons-lang3-3.14.0-sources.jar
  pkgindex parse --format pypi numpy-1.26.4-cp312-cp312-manylinux1_x86_64.whl --json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runParse(cmd, format, args, jsonOutput)
		},
	}

	cmd.Flags().StringVar(&format, "format", "maven", "Coordinate format: maven, pypi")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

func runParse(cmd *cobra.Command, format string, paths []string, jsonOutput bool) error {
	parser, err := coordinates.DefaultRegistry().Resolve(format)
	if err != nil {
		return err
	}

	out := output.New(cmd.OutOrStdout())
	parsed := make([]json.RawMessage, 0, len(paths))
	for _, p := range paths {
		c, err := parser.Parse(p)
		if err != nil {
			return err
		}

		if jsonOutput {
			data, err := coordinates.Encode(c)
			if err != nil {
				return fmt.Errorf("failed to encode coordinates: %w", err)
			}
			parsed = append(parsed, data)
			continue
		}

		out.Statusf("📦", "%s", p)
		fields := []output.Field{
			{Key: "format", Value: c.Format()},
			{Key: "group", Value: c.GroupKey()},
			{Key: "version", Value: c.Version()},
			{Key: "extension", Value: c.Extension()},
		}
		if c.Classifier() != "" {
			fields = append(fields, output.Field{Key: "classifier", Value: c.Classifier()})
		}
		fields = append(fields, output.Field{Key: "path", Value: c.Path()})
		out.KeyValues(fields...)
	}

	if jsonOutput {
		return out.JSON(parsed)
	}
	return nil
}
