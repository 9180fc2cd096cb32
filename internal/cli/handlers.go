package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go/service/secretsmanager"

	"github.com/BartekS5/totesys-etl/internal/config"
	"github.com/BartekS5/totesys-etl/internal/etl"
	"github.com/BartekS5/totesys-etl/internal/runlog"
	"github.com/BartekS5/totesys-etl/internal/secrets"
	"github.com/BartekS5/totesys-etl/internal/storage"
	"github.com/BartekS5/totesys-etl/pkg/database"
	"github.com/BartekS5/totesys-etl/pkg/logger"
)

func awsOptions(cfg *config.Config) storage.AWSOptions {
	return storage.AWSOptions{Region: cfg.AWS.Region, Endpoint: cfg.AWS.Endpoint}
}

func storeFactory(cfg *config.Config) etl.StoreFactory {
	return func(ctx context.Context) (storage.ObjectStore, error) {
		return storage.NewS3StoreFromOptions(ctx, awsOptions(cfg))
	}
}

// sourceFactory connects with source.dsn when set, otherwise with the
// credentials held in Secrets Manager.
func sourceFactory(cfg *config.Config) etl.SourceFactory {
	return func(ctx context.Context) (etl.Source, error) {
		dsn := cfg.Source.DSN
		if dsn == "" {
			var err error
			dsn, err = dsnFromSecret(ctx, cfg)
			if err != nil {
				return nil, err
			}
		}

		db, err := database.ConnectSQL(ctx, cfg.Source.Driver, dsn)
		if err != nil {
			return nil, err
		}
		return &database.SQLSource{DB: db}, nil
	}
}

func dsnFromSecret(ctx context.Context, cfg *config.Config) (string, error) {
	sess, err := storage.NewSession(ctx, awsOptions(cfg))
	if err != nil {
		return "", err
	}
	creds, err := secrets.NewFetcher(secretsmanager.New(sess)).GetCredentials(ctx, cfg.Source.SecretName)
	if err != nil {
		return "", err
	}
	return database.Params{
		Driver:   cfg.Source.Driver,
		User:     creds.User,
		Password: creds.Password,
		Host:     creds.Host,
		Port:     creds.Port,
		Database: creds.Database,
		SSLMode:  cfg.Source.SSLMode,
	}.DSN()
}

// NewExtractor wires the extract job to S3 and the source database.
func NewExtractor(cfg *config.Config, rec runlog.Recorder) (*etl.Extractor, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	return &etl.Extractor{
		NewStore: storeFactory(cfg),
		Connect:  sourceFactory(cfg),
		Config: etl.ExtractConfig{
			LandingBucket: cfg.Buckets.Landing,
			StateBucket:   cfg.Buckets.State,
			WatermarkKey:  cfg.Watermark.Key,
			Schema:        cfg.Source.Schema,
			ExcludedTable: cfg.Source.ExcludedTable,
			CreatedColumn: cfg.Source.CreatedColumn,
			Location:      loc,
		},
		Recorder: rec,
	}, nil
}

// NewTransformer wires the transform job to S3 and the dimension mapping.
func NewTransformer(cfg *config.Config, rec runlog.Recorder) (*etl.Transformer, error) {
	mapping, err := config.LoadMapping(cfg.Transform.MappingFile)
	if err != nil {
		return nil, err
	}
	return &etl.Transformer{
		NewStore: storeFactory(cfg),
		Config: etl.TransformConfig{
			SourceBucket:    cfg.Buckets.Landing,
			ProcessedBucket: cfg.Buckets.Processed,
			Tables:          cfg.Transform.Tables,
			Dimensions:      mapping.Dimensions,
		},
		Recorder: rec,
	}, nil
}

// OpenRecorder returns the MongoDB run log when mongo.uri is set. A run
// log that cannot be reached is reported and replaced by a no-op so the
// jobs still run.
func OpenRecorder(ctx context.Context, cfg *config.Config) (runlog.Recorder, func()) {
	if cfg.Mongo.URI == "" {
		return runlog.Nop{}, func() {}
	}
	rec, closeFn, err := openMongoRecorder(ctx, cfg)
	if err != nil {
		logger.Warnf("Run log disabled: %v", err)
		return runlog.Nop{}, func() {}
	}
	return rec, closeFn
}

func openMongoRecorder(ctx context.Context, cfg *config.Config) (*runlog.MongoRecorder, func(), error) {
	client, err := database.ConnectMongo(ctx, cfg.Mongo.URI)
	if err != nil {
		return nil, nil, err
	}
	closeFn := func() {
		disconnectCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := client.Disconnect(disconnectCtx); err != nil {
			logger.Warnf("Error disconnecting from MongoDB: %v", err)
		}
	}
	return runlog.NewMongoRecorder(client, cfg.Mongo.Database, cfg.Mongo.Collection), closeFn, nil
}

func outcomeError(job string, out etl.Outcome) error {
	if out.OK() {
		return nil
	}
	return fmt.Errorf("%s failed: %s", job, out.Error)
}
