package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/spf13/cobra"

	"github.com/BartekS5/totesys-etl/internal/etl"
	"github.com/BartekS5/totesys-etl/pkg/logger"
)

func newExtractCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "extract",
		Short: "Copy new source rows into the landing bucket",
		RunE: func(cmd *cobra.Command, args []string) error {
			defer logger.Close()
			cfg := root.cfg
			if err := cfg.Validate(); err != nil {
				return err
			}

			rec, closeRec := OpenRecorder(cmd.Context(), cfg)
			defer closeRec()

			ex, err := NewExtractor(cfg, rec)
			if err != nil {
				return err
			}
			out := ex.Run(cmd.Context())
			if err := printOutcome(cmd.OutOrStdout(), out); err != nil {
				return err
			}
			return outcomeError("extract", out)
		},
	}
}

func newTransformCmd(root *rootOptions) *cobra.Command {
	var eventFile string

	cmd := &cobra.Command{
		Use:   "transform",
		Short: "Build dimension tables from landed CSVs",
		Long: `Build dimension tables from landed CSVs. With --event the objects named
in an S3 notification JSON file are used; otherwise every configured table
prefix in the landing bucket is rescanned.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			defer logger.Close()
			cfg := root.cfg
			if err := cfg.Validate(); err != nil {
				return err
			}

			var event events.S3Event
			if eventFile != "" {
				data, err := os.ReadFile(eventFile)
				if err != nil {
					return fmt.Errorf("failed to read event file '%s': %w", eventFile, err)
				}
				if err := json.Unmarshal(data, &event); err != nil {
					return fmt.Errorf("failed to parse event file '%s': %w", eventFile, err)
				}
			}

			rec, closeRec := OpenRecorder(cmd.Context(), cfg)
			defer closeRec()

			tr, err := NewTransformer(cfg, rec)
			if err != nil {
				return err
			}
			out := tr.Run(cmd.Context(), event)
			if err := printOutcome(cmd.OutOrStdout(), out); err != nil {
				return err
			}
			return outcomeError("transform", out)
		},
	}

	cmd.Flags().StringVarP(&eventFile, "event", "e", "", "Path to an S3 event notification JSON file")
	return cmd
}

func newRunsCmd(root *rootOptions) *cobra.Command {
	var job string
	var limit int64

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recent job runs from the MongoDB run log",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := root.cfg
			if cfg.Mongo.URI == "" {
				return fmt.Errorf("mongo.uri is not configured")
			}

			rec, closeFn, err := openMongoRecorder(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer closeFn()

			runs, err := rec.Recent(cmd.Context(), job, limit)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "STARTED\tJOB\tMODE\tRESULT\tTABLES\tERROR")
			for _, r := range runs {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\n",
					r.StartedAt.Format(time.RFC3339), r.Job, r.Mode, r.Result, len(r.Tables), r.Error)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVarP(&job, "job", "j", "", "Only show runs of this job (extract or transform)")
	cmd.Flags().Int64VarP(&limit, "limit", "n", 20, "Number of runs to show")
	return cmd
}

func printOutcome(w io.Writer, out etl.Outcome) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
