// Package cli holds the cobra commands that run the ETL jobs locally.
package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/BartekS5/totesys-etl/internal/config"
	"github.com/BartekS5/totesys-etl/pkg/logger"
)

type rootOptions struct {
	ConfigFile string
	LogFile    string
	cfg        *config.Config
}

func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:   "totesys-etl",
		Short: "Extract totesys tables to S3 and build the star schema dimensions",
		Long: `totesys-etl copies new rows from the source database into the landing
bucket as CSV, tracking progress with a watermark object, and turns landed
CSVs into parquet dimension tables in the processed bucket.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.load()
		},
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&opts.ConfigFile, "config", "c", "", "Path to a config file (default ./configs/config.yaml if present)")
	rootCmd.PersistentFlags().StringVar(&opts.LogFile, "log-file", "", "Also write logs to this file")

	rootCmd.AddCommand(newExtractCmd(opts), newTransformCmd(opts), newRunsCmd(opts))
	return rootCmd
}

func (o *rootOptions) load() error {
	cfg, err := config.Load(o.ConfigFile)
	if err != nil {
		return err
	}
	o.cfg = cfg

	logOpts := logger.Options{Level: cfg.Log.Level, Format: cfg.Log.Format, AddSource: cfg.Log.AddSource}
	logFile := o.LogFile
	if logFile == "" {
		logFile = cfg.Log.File
	}
	if logFile != "" {
		return logger.InitLogger(logFile, logOpts)
	}
	return logger.Setup(os.Stdout, logOpts)
}
