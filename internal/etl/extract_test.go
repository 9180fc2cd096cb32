package etl

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BartekS5/totesys-etl/internal/storage"
	"github.com/BartekS5/totesys-etl/pkg/table"
)

var fixedNow = time.Date(2024, 3, 5, 14, 2, 3, 123456000, time.UTC)

var testExtractConfig = ExtractConfig{
	LandingBucket: "ingested",
	StateBucket:   "code",
	WatermarkKey:  "last_extracted.txt",
	Schema:        "public",
	ExcludedTable: "_prisma_migrations",
	CreatedColumn: "created_at",
	Location:      time.UTC,
}

func listQuery() string {
	return "SELECT table_name FROM information_schema.tables WHERE table_schema = 'public' AND table_name != '_prisma_migrations'"
}

func newExtractor(store *memStore, src *fakeSource) *Extractor {
	return &Extractor{
		NewStore: func(context.Context) (storage.ObjectStore, error) { return store, nil },
		Connect:  func(context.Context) (Source, error) { return src, nil },
		Config:   testExtractConfig,
		Now:      func() time.Time { return fixedNow },
	}
}

func twoTableSource(filter string) *fakeSource {
	return &fakeSource{results: map[string]*table.Table{
		listQuery(): strTable([]string{"table_name"}, strRow("table1"), strRow("table2")),
		"SELECT * FROM table1" + filter: strTable([]string{"id", "name", "created_at"},
			strRow("1", "Test", "2024-01-01 00:00:00"),
			strRow("2", "Test2", "2024-01-02 00:00:00"),
		),
		"SELECT * FROM table2" + filter: strTable([]string{"id"}),
	}}
}

func TestFullExtractWhenNoWatermark(t *testing.T) {
	store := newMemStore()
	src := twoTableSource("")
	rec := &memRecorder{}
	ex := newExtractor(store, src)
	ex.Recorder = rec

	out := ex.Run(context.Background())

	assert.Equal(t, Success(), out)
	assert.Equal(t, []string{listQuery(), "SELECT * FROM table1", "SELECT * FROM table2"}, src.queries)
	assert.Equal(t, 1, src.closed)

	body, ok := store.object("ingested", LandingKey("table1", fixedNow))
	require.True(t, ok)
	assert.Equal(t, "id,name,created_at\n1,Test,2024-01-01 00:00:00\n2,Test2,2024-01-02 00:00:00\n", body)

	wm, ok := store.object("code", "last_extracted.txt")
	require.True(t, ok)
	assert.Equal(t, "2024-03-05 14:02:03.123456", wm)

	require.Len(t, rec.runs, 1)
	assert.Equal(t, ModeFull, rec.runs[0].Mode)
	assert.Equal(t, ResultSuccess, rec.runs[0].Result)
	require.Len(t, rec.runs[0].Tables, 1)
	assert.Equal(t, 2, rec.runs[0].Tables[0].Rows)
}

func TestIncrementalExtractUsesWatermark(t *testing.T) {
	store := newMemStore()
	require.NoError(t, store.Put(context.Background(), "code", "last_extracted.txt", []byte("2024-01-01 00:00:00")))
	store.puts = nil

	src := twoTableSource(" WHERE created_at > '2024-01-01 00:00:00'")
	out := newExtractor(store, src).Run(context.Background())

	assert.True(t, out.OK())
	assert.Equal(t, 1, src.count(listQuery()), "table discovery runs once per run")
	assert.Equal(t, 1, src.count("SELECT * FROM table1 WHERE created_at > '2024-01-01 00:00:00'"))
	assert.Equal(t, 1, src.count("SELECT * FROM table2 WHERE created_at > '2024-01-01 00:00:00'"))
	assert.Zero(t, src.count("SELECT * FROM table1"))

	wm, _ := store.object("code", "last_extracted.txt")
	assert.Equal(t, "2024-03-05 14:02:03.123456", wm)
}

func TestIncrementalExtractAcceptsIsoWatermark(t *testing.T) {
	store := newMemStore()
	require.NoError(t, store.Put(context.Background(), "code", "last_extracted.txt", []byte("2024-06-01T09:30:00.500000\n")))

	src := &fakeSource{results: map[string]*table.Table{
		listQuery(): strTable([]string{"table_name"}, strRow("staff")),
	}}
	out := newExtractor(store, src).Run(context.Background())

	assert.True(t, out.OK())
	assert.Contains(t, src.queries, "SELECT * FROM staff WHERE created_at > '2024-06-01 09:30:00.500000'")
}

func TestEmptyTablesAreNotWritten(t *testing.T) {
	store := newMemStore()
	src := twoTableSource("")
	out := newExtractor(store, src).Run(context.Background())

	assert.True(t, out.OK())
	keys, _ := store.List(context.Background(), "ingested", "table2/")
	assert.Empty(t, keys)
	assert.Equal(t, []string{
		"ingested/" + LandingKey("table1", fixedNow),
		"code/last_extracted.txt",
	}, store.puts)
}

func TestUnusableTableNamesAreSkipped(t *testing.T) {
	store := newMemStore()
	src := &fakeSource{results: map[string]*table.Table{
		listQuery(): {
			Schema: table.StringSchema("table_name"),
			Rows:   []table.Row{{table.Null()}, {table.Int(4)}, strRow("drop table x;")},
		},
	}}

	out := newExtractor(store, src).Run(context.Background())

	assert.True(t, out.OK())
	assert.Equal(t, []string{listQuery()}, src.queries)
	assert.Equal(t, []string{"code/last_extracted.txt"}, store.puts, "nothing lands for unusable names")
}

func TestStoreConstructionFailures(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"no credentials", fmt.Errorf("%w: NoCredentialProviders", storage.ErrNoCredentials), MsgNoCredentials},
		{"client error", fmt.Errorf("%w: AccessDenied", storage.ErrClient), MsgClientError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			connected := false
			ex := &Extractor{
				NewStore: func(context.Context) (storage.ObjectStore, error) { return nil, tt.err },
				Connect: func(context.Context) (Source, error) {
					connected = true
					return &fakeSource{}, nil
				},
				Config: testExtractConfig,
			}

			out := ex.Run(context.Background())

			assert.Equal(t, Failure(tt.want), out)
			assert.False(t, connected, "no work after a client failure")
		})
	}
}

func TestConnectFailure(t *testing.T) {
	store := newMemStore()
	ex := newExtractor(store, nil)
	ex.Connect = func(context.Context) (Source, error) { return nil, errors.New("connection refused") }

	out := ex.Run(context.Background())

	assert.Equal(t, Failure(MsgConnectError), out)
	assert.Empty(t, store.puts)
}

func TestWatermarkWriteFailure(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"storage error", &storage.Error{Op: "put", Bucket: "code", Key: "last_extracted.txt", Err: errors.New("AccessDenied")}, MsgWatermarkUpdate},
		{"unexpected error", errors.New("Unexpected error occurred"), MsgUnexpected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newMemStore()
			store.PutFunc = func(bucket, key string, _ []byte) error {
				if bucket == "code" {
					return tt.err
				}
				return nil
			}
			src := twoTableSource("")

			out := newExtractor(store, src).Run(context.Background())

			assert.Equal(t, Failure(tt.want), out)
			assert.NotEqual(t, MsgExtractError, out.Error)
			assert.Equal(t, 1, src.closed, "connection released after a failed state write")
		})
	}
}

func TestExtractionFailure(t *testing.T) {
	store := newMemStore()
	src := &fakeSource{QueryFunc: func(q string) (*table.Table, error) {
		if q == listQuery() {
			return strTable([]string{"table_name"}, strRow("staff")), nil
		}
		return nil, errors.New("relation does not exist")
	}}

	out := newExtractor(store, src).Run(context.Background())

	assert.Equal(t, Failure(MsgExtractError), out)
	assert.Equal(t, 1, src.closed)
	_, written := store.object("code", "last_extracted.txt")
	assert.False(t, written, "watermark is not advanced after a failed extraction")
}

func TestNoColumnsIsUnexpected(t *testing.T) {
	store := newMemStore()
	src := &fakeSource{results: map[string]*table.Table{
		listQuery():         strTable([]string{"table_name"}, strRow("odd")),
		"SELECT * FROM odd": {Rows: []table.Row{{}}},
	}}

	out := newExtractor(store, src).Run(context.Background())

	assert.Equal(t, Failure(MsgUnexpected), out)
	assert.Equal(t, 1, src.closed)
}

func TestMalformedWatermark(t *testing.T) {
	store := newMemStore()
	require.NoError(t, store.Put(context.Background(), "code", "last_extracted.txt", []byte("yesterday")))
	src := twoTableSource("")

	out := newExtractor(store, src).Run(context.Background())

	assert.Equal(t, Failure(MsgWatermarkRead), out)
	assert.Empty(t, src.queries)
	assert.Equal(t, 1, src.closed)
}

func TestSelectQuery(t *testing.T) {
	since := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "SELECT * FROM staff", SelectQuery("staff", "created_at", nil, time.UTC))
	assert.Equal(t, "SELECT * FROM staff WHERE created_at > '2024-01-01 00:00:00'",
		SelectQuery("staff", "created_at", &since, time.UTC))

	london, err := time.LoadLocation("Europe/London")
	require.NoError(t, err)
	summer := time.Date(2024, 7, 1, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, "SELECT * FROM staff WHERE last_updated > '2024-07-01 13:00:00'",
		SelectQuery("staff", "last_updated", &summer, london), "rendered on the source's wall clock")
}

func TestTableListQueryEscapesLiterals(t *testing.T) {
	assert.Equal(t,
		"SELECT table_name FROM information_schema.tables WHERE table_schema = 'o''brien' AND table_name != 'x'",
		TableListQuery("o'brien", "x"))
}
