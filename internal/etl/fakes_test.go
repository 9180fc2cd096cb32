package etl

import (
	"context"
	"sort"
	"strings"

	"github.com/BartekS5/totesys-etl/internal/runlog"
	"github.com/BartekS5/totesys-etl/internal/storage"
	"github.com/BartekS5/totesys-etl/pkg/table"
)

// memStore is an in-memory ObjectStore. PutFunc, when set, runs before
// the write and can fail it.
type memStore struct {
	objects map[string][]byte
	puts    []string
	PutFunc func(bucket, key string, body []byte) error
}

func newMemStore() *memStore {
	return &memStore{objects: make(map[string][]byte)}
}

func (m *memStore) List(_ context.Context, bucket, prefix string) ([]string, error) {
	var keys []string
	for full := range m.objects {
		b, k, _ := strings.Cut(full, "/")
		if b == bucket && strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func (m *memStore) Get(_ context.Context, bucket, key string) ([]byte, error) {
	b, ok := m.objects[bucket+"/"+key]
	if !ok {
		return nil, &storage.Error{Op: "get", Bucket: bucket, Key: key, Kind: storage.ErrNotFound}
	}
	return b, nil
}

func (m *memStore) Put(_ context.Context, bucket, key string, body []byte) error {
	if m.PutFunc != nil {
		if err := m.PutFunc(bucket, key, body); err != nil {
			return err
		}
	}
	m.objects[bucket+"/"+key] = append([]byte(nil), body...)
	m.puts = append(m.puts, bucket+"/"+key)
	return nil
}

func (m *memStore) object(bucket, key string) (string, bool) {
	b, ok := m.objects[bucket+"/"+key]
	return string(b), ok
}

// fakeSource answers queries from a map and records what it was asked.
type fakeSource struct {
	results   map[string]*table.Table
	QueryFunc func(query string) (*table.Table, error)
	queries   []string
	closed    int
}

func (f *fakeSource) Query(_ context.Context, q string) (*table.Table, error) {
	f.queries = append(f.queries, q)
	if f.QueryFunc != nil {
		return f.QueryFunc(q)
	}
	if t, ok := f.results[q]; ok {
		return t, nil
	}
	return table.New(table.StringSchema("id")), nil
}

func (f *fakeSource) Close() error {
	f.closed++
	return nil
}

func (f *fakeSource) count(q string) int {
	n := 0
	for _, got := range f.queries {
		if got == q {
			n++
		}
	}
	return n
}

type memRecorder struct {
	runs []*runlog.Run
}

func (m *memRecorder) Record(_ context.Context, run *runlog.Run) error {
	m.runs = append(m.runs, run)
	return nil
}

func strRow(vals ...string) table.Row {
	r := make(table.Row, len(vals))
	for i, v := range vals {
		r[i] = table.String(v)
	}
	return r
}

func strTable(cols []string, rows ...table.Row) *table.Table {
	return &table.Table{Schema: table.StringSchema(cols...), Rows: rows}
}
