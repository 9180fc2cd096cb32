package etl

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/BartekS5/totesys-etl/internal/runlog"
	"github.com/BartekS5/totesys-etl/internal/storage"
	"github.com/BartekS5/totesys-etl/pkg/logger"
	"github.com/BartekS5/totesys-etl/pkg/table"
)

const (
	ModeFull        = "full"
	ModeIncremental = "incremental"
)

var identifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_$]*$`)

type ExtractConfig struct {
	LandingBucket string
	StateBucket   string
	WatermarkKey  string
	Schema        string
	ExcludedTable string
	CreatedColumn string
	// Location is the wall clock the source's naive timestamps are in.
	Location *time.Location
}

// Extractor copies source tables into the landing bucket as CSV, either
// in full or since the stored watermark.
type Extractor struct {
	NewStore StoreFactory
	Connect  SourceFactory
	Config   ExtractConfig
	Now      func() time.Time
	Recorder runlog.Recorder
}

func (e *Extractor) now() time.Time {
	now := time.Now
	if e.Now != nil {
		now = e.Now
	}
	t := now()
	if e.Config.Location != nil {
		t = t.In(e.Config.Location)
	}
	return t
}

// Run performs one extraction and reports how it went. It never returns
// an error: every failure is folded into the Outcome.
func (e *Extractor) Run(ctx context.Context) Outcome {
	run := runlog.NewRun("extract", e.now())
	outcome := e.run(ctx, run)
	run.Finish(e.now(), outcome.Result, outcome.Error, outcome.Warnings)

	if e.Recorder != nil {
		if err := e.Recorder.Record(ctx, run); err != nil {
			logger.Warnf("Could not record extract run %s: %v", run.ID, err)
		}
	}
	return outcome
}

func (e *Extractor) run(ctx context.Context, run *runlog.Run) Outcome {
	store, err := e.NewStore(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrNoCredentials) {
			logger.Errorf("AWS credentials not found. Unable to create S3 client: %v", err)
			return Failure(MsgNoCredentials)
		}
		logger.Errorf("Error creating S3 client: %v", err)
		return Failure(MsgClientError)
	}

	src, err := e.Connect(ctx)
	if err != nil {
		logger.Errorf("Error connecting to source database: %v", err)
		return Failure(MsgConnectError)
	}
	defer func() {
		if err := src.Close(); err != nil {
			logger.Warnf("Error closing source connection: %v", err)
		}
	}()

	wm := &WatermarkStore{
		Store:    store,
		Bucket:   e.Config.StateBucket,
		Key:      e.Config.WatermarkKey,
		Location: e.Config.Location,
	}
	since, found, err := wm.Load(ctx)
	if err != nil {
		logger.Errorf("Error reading %s: %v", e.Config.WatermarkKey, err)
		return Failure(MsgWatermarkRead)
	}

	var sincePtr *time.Time
	run.Mode = ModeFull
	if found {
		sincePtr = &since
		run.Mode = ModeIncremental
	}
	logger.Infof("Starting %s extract", run.Mode)

	if err := e.extract(ctx, store, src, sincePtr, run); err != nil {
		if errors.Is(err, table.ErrNoColumns) {
			logger.Errorf("Unexpected error: %v", err)
			return Failure(MsgUnexpected)
		}
		logger.Errorf("Error extracting data: %v", err)
		return Failure(MsgExtractError)
	}

	if err := wm.Save(ctx, e.now()); err != nil {
		if storage.IsStorageError(err) {
			logger.Errorf("Error updating %s: %v", e.Config.WatermarkKey, err)
			return Failure(MsgWatermarkUpdate)
		}
		logger.Errorf("Unexpected error: %v", err)
		return Failure(MsgUnexpected)
	}

	logger.Infof("Extract finished: %d tables written", len(run.Tables))
	return Success()
}

func (e *Extractor) extract(ctx context.Context, store storage.ObjectStore, src Source, since *time.Time, run *runlog.Run) error {
	tables, err := src.Query(ctx, TableListQuery(e.Config.Schema, e.Config.ExcludedTable))
	if err != nil {
		return fmt.Errorf("listing tables: %w", err)
	}

	for _, name := range tableNames(tables) {
		if !identifier.MatchString(name) {
			logger.Warnf("Skipping unusable table name %q (key would be %s)", name, LandingKey(name, e.now()))
			continue
		}

		rows, err := src.Query(ctx, SelectQuery(name, e.Config.CreatedColumn, since, e.Config.Location))
		if err != nil {
			return fmt.Errorf("querying %s: %w", name, err)
		}
		if rows.Empty() {
			logger.Infof("No new rows in %s", name)
			continue
		}

		buf, err := table.EncodeCSV(rows)
		if err != nil {
			return fmt.Errorf("formatting %s: %w", name, err)
		}

		key := LandingKey(name, e.now())
		if err := store.Put(ctx, e.Config.LandingBucket, key, buf.Bytes()); err != nil {
			return fmt.Errorf("storing %s: %w", name, err)
		}
		run.AddTable(name, rows.Len(), key)
		logger.Infof("Stored %d rows from %s at s3://%s/%s", rows.Len(), name, e.Config.LandingBucket, key)
	}
	return nil
}

// TableListQuery lists every user table in schema except the excluded one.
func TableListQuery(schema, excluded string) string {
	return fmt.Sprintf(
		"SELECT table_name FROM information_schema.tables WHERE table_schema = '%s' AND table_name != '%s'",
		quoteLiteral(schema), quoteLiteral(excluded))
}

// SelectQuery selects every column of table, limited to rows created
// after since when it is set. The timestamp literal is rendered from the
// parsed watermark, never copied from stored text.
func SelectQuery(tableName, createdColumn string, since *time.Time, loc *time.Location) string {
	if since == nil {
		return fmt.Sprintf("SELECT * FROM %s", tableName)
	}
	if createdColumn == "" {
		createdColumn = "created_at"
	}
	return fmt.Sprintf("SELECT * FROM %s WHERE %s > '%s'", tableName, createdColumn, FormatWatermark(*since, loc))
}

// tableNames takes the first column of the listing result. Null or
// non-text cells come back as "".
func tableNames(t *table.Table) []string {
	if t == nil || len(t.Schema) == 0 {
		return nil
	}
	names := make([]string, 0, len(t.Rows))
	for _, row := range t.Rows {
		v := row[0]
		if v.IsNull() || v.Kind() != table.KindString {
			names = append(names, "")
			continue
		}
		names = append(names, v.Text())
	}
	return names
}

func quoteLiteral(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}
