package etl

import (
	"context"
	"fmt"
	"time"

	"github.com/BartekS5/totesys-etl/internal/storage"
	"github.com/BartekS5/totesys-etl/pkg/utils"
)

// WatermarkStore persists the extract watermark as a single text object.
// The text is "YYYY-MM-DD HH:MM:SS[.ffffff]" with no zone, so it compares
// directly with naive timestamp columns. Location says which wall clock
// the naive text belongs to.
type WatermarkStore struct {
	Store    storage.ObjectStore
	Bucket   string
	Key      string
	Location *time.Location
}

// Load returns the stored watermark, or ok=false when none has been written.
func (w *WatermarkStore) Load(ctx context.Context) (time.Time, bool, error) {
	found, err := storage.Exists(ctx, w.Store, w.Bucket, w.Key)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("probing watermark: %w", err)
	}
	if !found {
		return time.Time{}, false, nil
	}

	data, err := w.Store.Get(ctx, w.Bucket, w.Key)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("reading watermark: %w", err)
	}
	t, err := utils.ParseTimestamp(string(data), w.Location)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("parsing watermark: %w", err)
	}
	return t, true, nil
}

// Save overwrites the watermark with t.
func (w *WatermarkStore) Save(ctx context.Context, t time.Time) error {
	text := FormatWatermark(t, w.Location)
	if err := w.Store.Put(ctx, w.Bucket, w.Key, []byte(text)); err != nil {
		return fmt.Errorf("writing watermark: %w", err)
	}
	return nil
}

// FormatWatermark renders t on loc's wall clock in the stored format.
func FormatWatermark(t time.Time, loc *time.Location) string {
	if loc != nil {
		t = t.In(loc)
	}
	return utils.FormatTimestamp(t, ' ')
}
