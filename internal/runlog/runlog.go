// Package runlog keeps a history of extract and transform runs.
package runlog

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type TableStat struct {
	Table string `bson:"table" json:"table"`
	Rows  int    `bson:"rows" json:"rows"`
	Key   string `bson:"key,omitempty" json:"key,omitempty"`
}

// Run is one job invocation.
type Run struct {
	ID         string      `bson:"_id" json:"id"`
	Job        string      `bson:"job" json:"job"`
	Mode       string      `bson:"mode" json:"mode"`
	StartedAt  time.Time   `bson:"started_at" json:"started_at"`
	FinishedAt time.Time   `bson:"finished_at" json:"finished_at"`
	Result     string      `bson:"result" json:"result"`
	Error      string      `bson:"error,omitempty" json:"error,omitempty"`
	Warnings   []string    `bson:"warnings,omitempty" json:"warnings,omitempty"`
	Tables     []TableStat `bson:"tables,omitempty" json:"tables,omitempty"`
}

func NewRun(job string, started time.Time) *Run {
	return &Run{ID: uuid.NewString(), Job: job, StartedAt: started}
}

func (r *Run) AddTable(table string, rows int, key string) {
	r.Tables = append(r.Tables, TableStat{Table: table, Rows: rows, Key: key})
}

func (r *Run) Finish(at time.Time, result, errMsg string, warnings []string) {
	r.FinishedAt = at
	r.Result = result
	r.Error = errMsg
	r.Warnings = warnings
}

type Recorder interface {
	Record(ctx context.Context, run *Run) error
}

// Nop discards runs.
type Nop struct{}

func (Nop) Record(context.Context, *Run) error { return nil }
