package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/ruslano69/tdtp-deid/internal/infra"
	"github.com/ruslano69/tdtp-deid/pkg/plan"
)

type resolveOptions struct {
	format string
}

func newResolveCmd(root *rootOptions) *cobra.Command {
	opts := &resolveOptions{}

	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Resolve the plan from the artifact and sample and print it",
		Long: `Load the artifact and the representative sample, run the engine search
once and print the resulting plan: its ID, output header, chosen
transformation and the adapted criteria.`,
		Example: `  # Print the plan as YAML
  deidctl resolve --config deid.yaml

  # Print the plan as JSON
  DEID_URL=artifact.yaml DEID_SAMPLE=sample.csv deidctl resolve -f json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.load()
			if err != nil {
				return err
			}
			rt, err := infra.Bootstrap(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			return printPlan(cmd.OutOrStdout(), rt.Plan.Describe(), opts.format)
		},
	}

	cmd.Flags().StringVarP(&opts.format, "format", "f", "yaml", "Output format (yaml, json)")
	return cmd
}

func printPlan(w io.Writer, d plan.Description, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(d)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(d); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown format %q (want yaml or json)", format)
	}
}
