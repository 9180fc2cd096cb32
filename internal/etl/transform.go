package etl

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/aws/aws-lambda-go/events"

	"github.com/BartekS5/totesys-etl/internal/runlog"
	"github.com/BartekS5/totesys-etl/internal/storage"
	"github.com/BartekS5/totesys-etl/pkg/logger"
	"github.com/BartekS5/totesys-etl/pkg/models"
	"github.com/BartekS5/totesys-etl/pkg/table"
)

const (
	ModeEvent  = "event"
	ModeRescan = "rescan"
)

// FileRef names a landing object, or a prefix of them.
type FileRef struct {
	Bucket string
	Key    string
}

type TransformConfig struct {
	SourceBucket    string
	ProcessedBucket string
	Tables          []string
	Dimensions      []models.DimensionSpec
}

// FilesFromEvent returns the objects named by an S3 notification, or one
// prefix per known table when the event carries no records.
func FilesFromEvent(event events.S3Event, sourceBucket string, tables []string) []FileRef {
	if len(event.Records) > 0 {
		refs := make([]FileRef, 0, len(event.Records))
		for _, rec := range event.Records {
			key := rec.S3.Object.Key
			if decoded, err := url.QueryUnescape(key); err == nil {
				key = decoded
			}
			refs = append(refs, FileRef{Bucket: rec.S3.Bucket.Name, Key: key})
		}
		return refs
	}

	refs := make([]FileRef, 0, len(tables))
	for _, t := range tables {
		refs = append(refs, FileRef{Bucket: sourceBucket, Key: t + "/"})
	}
	return refs
}

// LoadRawData reads every CSV under each ref and concatenates them per
// table, in listing order. The table is the first segment of the key.
// Refs with nothing to load produce an empty table and a warning.
func LoadRawData(ctx context.Context, store storage.ObjectStore, refs []FileRef) (map[string]*table.Table, []string, error) {
	raw := make(map[string]*table.Table)
	var warnings []string

	for _, ref := range refs {
		name := TableFromKey(ref.Key)
		if _, ok := raw[name]; !ok {
			raw[name] = table.New(nil)
		}

		keys, err := store.List(ctx, ref.Bucket, ref.Key)
		if err != nil {
			return nil, warnings, fmt.Errorf("listing s3://%s/%s: %w", ref.Bucket, ref.Key, err)
		}

		loaded := 0
		for _, key := range keys {
			if !strings.HasSuffix(key, ".csv") {
				continue
			}
			logger.Infof("Loading file: %s", key)
			data, err := store.Get(ctx, ref.Bucket, key)
			if err != nil {
				return nil, warnings, fmt.Errorf("loading %s: %w", key, err)
			}
			part, err := table.DecodeCSV(bytes.NewReader(data))
			if errors.Is(err, table.ErrNoColumns) {
				warnings = warn(warnings, "Skipping empty file: %s", key)
				continue
			}
			if err != nil {
				return nil, warnings, fmt.Errorf("parsing %s: %w", key, err)
			}
			raw[name].Concat(part)
			loaded++
		}
		if loaded == 0 {
			warnings = warn(warnings, "No files found under prefix: %s", ref.Key)
		}
	}
	return raw, warnings, nil
}

// Transformer turns landing CSVs into parquet dimension tables.
type Transformer struct {
	NewStore StoreFactory
	Config   TransformConfig
	Now      func() time.Time
	Recorder runlog.Recorder
}

func (t *Transformer) now() time.Time {
	if t.Now != nil {
		return t.Now()
	}
	return time.Now()
}

// Run transforms whatever the event points at (or everything, for an
// empty event) and reports the outcome. Skipped dimensions show up as
// warnings on a successful outcome.
func (t *Transformer) Run(ctx context.Context, event events.S3Event) Outcome {
	run := runlog.NewRun("transform", t.now())
	outcome := t.run(ctx, event, run)
	run.Finish(t.now(), outcome.Result, outcome.Error, outcome.Warnings)

	if t.Recorder != nil {
		if err := t.Recorder.Record(ctx, run); err != nil {
			logger.Warnf("Could not record transform run %s: %v", run.ID, err)
		}
	}
	return outcome
}

func (t *Transformer) run(ctx context.Context, event events.S3Event, run *runlog.Run) Outcome {
	logger.Infof("Starting transformation process.")

	store, err := t.NewStore(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrNoCredentials) {
			logger.Errorf("AWS credentials not found. Unable to create S3 client: %v", err)
			return Failure(MsgNoCredentials)
		}
		logger.Errorf("Error creating S3 client: %v", err)
		return Failure(MsgClientError)
	}

	refs := FilesFromEvent(event, t.Config.SourceBucket, t.Config.Tables)
	run.Mode = ModeRescan
	if len(event.Records) > 0 {
		run.Mode = ModeEvent
		logger.Infof("Triggered by S3 event for %d files", len(refs))
	} else {
		logger.Infof("No S3 event detected; falling back to batch processing.")
	}

	raw, warnings, err := LoadRawData(ctx, store, refs)
	if err != nil {
		logger.Errorf("Error loading landing data: %v", err)
		return Failure(MsgLoadError)
	}

	results := make([]DimensionResult, 0, len(t.Config.Dimensions))
	for _, dim := range t.Config.Dimensions {
		res, err := BuildDimension(dim, raw)
		if err != nil {
			logger.Errorf("Error transforming data: %v", err)
			return Failure(MsgTransformError)
		}
		if res.Skipped() {
			warnings = warn(warnings, "%s", res.Warning)
			continue
		}
		results = append(results, res)
	}

	now := t.now()
	for _, res := range results {
		if res.Table.Empty() {
			warnings = warn(warnings, "No data to save for %s.", res.Name)
			continue
		}
		key, err := t.save(ctx, store, res, now)
		if err != nil {
			logger.Errorf("Error saving processed data: %v", err)
			return Failure(MsgSaveError)
		}
		run.AddTable(res.Name, res.Table.Len(), key)
	}

	logger.Infof("Data transformed and saved successfully.")
	return Success(warnings...)
}

func (t *Transformer) save(ctx context.Context, store storage.ObjectStore, res DimensionResult, now time.Time) (string, error) {
	data, err := table.EncodeParquet(res.Table)
	if err != nil {
		return "", fmt.Errorf("encoding %s: %w", res.Name, err)
	}
	key := ProcessedKey(res.Name, now)
	logger.Infof("Saving transformed data to: %s", key)
	if err := store.Put(ctx, t.Config.ProcessedBucket, key, data); err != nil {
		return "", err
	}
	return key, nil
}

func warn(warnings []string, format string, args ...interface{}) []string {
	msg := fmt.Sprintf(format, args...)
	logger.Warnf("%s", msg)
	return append(warnings, msg)
}
