// Command lambda runs one ETL job per invocation. ETL_JOB selects the
// job: "extract" (scheduled) or "transform" (S3 notifications).
package main

import (
	"context"
	"log"
	"os"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"

	"github.com/BartekS5/totesys-etl/internal/cli"
	"github.com/BartekS5/totesys-etl/internal/config"
	"github.com/BartekS5/totesys-etl/internal/etl"
	"github.com/BartekS5/totesys-etl/pkg/logger"
)

func main() {
	cfg, err := config.Load(os.Getenv("ETL_CONFIG_FILE"))
	if err != nil {
		log.Fatalf("ERROR: Could not load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("ERROR: Invalid config: %v", err)
	}
	if err := logger.Setup(os.Stdout, logger.Options{Level: cfg.Log.Level, Format: cfg.Log.Format}); err != nil {
		log.Fatalf("ERROR: Could not set up logging: %v", err)
	}

	// The run log connection is reused across warm invocations.
	rec, closeRec := cli.OpenRecorder(context.Background(), cfg)
	defer closeRec()

	switch job := os.Getenv("ETL_JOB"); job {
	case "extract":
		ex, err := cli.NewExtractor(cfg, rec)
		if err != nil {
			log.Fatalf("ERROR: %v", err)
		}
		lambda.Start(func(ctx context.Context) (etl.Outcome, error) {
			return ex.Run(ctx), nil
		})
	case "transform":
		tr, err := cli.NewTransformer(cfg, rec)
		if err != nil {
			log.Fatalf("ERROR: %v", err)
		}
		lambda.Start(func(ctx context.Context, event events.S3Event) (etl.Outcome, error) {
			return tr.Run(ctx, event), nil
		})
	default:
		log.Fatalf("ERROR: ETL_JOB must be 'extract' or 'transform', got %q", job)
	}
}
