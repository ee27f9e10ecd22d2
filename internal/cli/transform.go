package cli

import (
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/ruslano69/tdtp-deid/internal/infra"
)

type transformOptions struct {
	in    string
	out   string
	sheet string
}

func newTransformCmd(root *rootOptions) *cobra.Command {
	opts := &transformOptions{}

	cmd := &cobra.Command{
		Use:   "transform",
		Short: "Apply the plan to a file of records",
		Long: `Resolve the plan and apply it to every record of the input file as a
single batch. Nothing is written if any record fails.

Input formats: .json (array of objects or a single object), .csv, .tsv, .xlsx.
Output formats: .json (default, stdout when --out is empty), .csv, .xlsx.`,
		Example: `  # JSON to stdout
  deidctl transform --config deid.yaml --in records.json

  # Excel in, Excel out
  deidctl transform -c deid.yaml --in patients.xlsx --out deidentified.xlsx`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTransform(cmd, root, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.in, "in", "i", "-", "Input file (- for JSON on stdin)")
	cmd.Flags().StringVarP(&opts.out, "out", "o", "", "Output file (stdout when empty)")
	cmd.Flags().StringVar(&opts.sheet, "sheet", "", "Sheet name for .xlsx input (first sheet when empty)")
	return cmd
}

func runTransform(cmd *cobra.Command, root *rootOptions, opts *transformOptions) error {
	cfg, err := root.load()
	if err != nil {
		return err
	}

	batch, err := readBatch(opts.in, opts.sheet, cmd.InOrStdin())
	if err != nil {
		return fmt.Errorf("read input: %w", err)
	}

	rt, err := infra.Bootstrap(cmd.Context(), cfg)
	if err != nil {
		return err
	}

	start := time.Now()
	out, err := rt.Service.Transform(cmd.Context(), batch)
	if err != nil {
		return err
	}
	log.Info().
		Int("records", len(out)).
		Str("plan_id", rt.Plan.ID()).
		Dur("elapsed", time.Since(start)).
		Msg("batch transformed")

	return writeBatch(opts.out, rt.Plan.Header().Names(), out, cmd.OutOrStdout())
}
