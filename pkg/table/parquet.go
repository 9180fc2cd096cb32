package table

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xitongsys/parquet-go-source/buffer"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/writer"
)

const parquetParallelism = 4

type parquetField struct {
	Tag string `json:"Tag"`
}

type parquetSchema struct {
	Tag    string         `json:"Tag"`
	Fields []parquetField `json:"Fields"`
}

// ParquetSchema renders the parquet-go JSON schema for the table. Every
// column is OPTIONAL so nulls survive the round trip.
func ParquetSchema(s Schema) (string, error) {
	root := parquetSchema{Tag: "name=parquet_go_root, repetitiontype=REQUIRED"}
	for _, c := range s {
		if c.Name == "" || strings.ContainsAny(c.Name, ",=") {
			return "", fmt.Errorf("invalid parquet column name %q", c.Name)
		}
		var tag string
		switch c.Kind {
		case KindInt64:
			tag = fmt.Sprintf("name=%s, type=INT64, repetitiontype=OPTIONAL", c.Name)
		default:
			tag = fmt.Sprintf("name=%s, type=BYTE_ARRAY, convertedtype=UTF8, repetitiontype=OPTIONAL", c.Name)
		}
		root.Fields = append(root.Fields, parquetField{Tag: tag})
	}

	b, err := json.Marshal(root)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// EncodeParquet serializes the table into an in-memory, SNAPPY-compressed
// parquet file with the schema embedded in the footer. Empty tables are
// rejected with ErrEmptyTable; callers skip writing them.
func EncodeParquet(t *Table) ([]byte, error) {
	if t == nil || len(t.Schema) == 0 {
		return nil, ErrNoColumns
	}
	if len(t.Rows) == 0 {
		return nil, ErrEmptyTable
	}

	schema, err := ParquetSchema(t.Schema)
	if err != nil {
		return nil, err
	}

	buf := buffer.NewBufferFile()
	pw, err := writer.NewJSONWriter(schema, buf, parquetParallelism)
	if err != nil {
		return nil, fmt.Errorf("failed to create parquet writer: %w", err)
	}
	pw.CompressionType = parquet.CompressionCodec_SNAPPY

	for i, row := range t.Rows {
		rec, err := jsonRecord(t.Schema, row)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		if err := pw.Write(rec); err != nil {
			return nil, fmt.Errorf("writing parquet row %d: %w", i, err)
		}
	}

	if err := pw.WriteStop(); err != nil {
		return nil, fmt.Errorf("error in WriteStop: %w", err)
	}
	return buf.Bytes(), nil
}

func jsonRecord(s Schema, row Row) (string, error) {
	if len(row) != len(s) {
		return "", ErrRowWidth
	}
	rec := make(map[string]interface{}, len(s))
	for i, c := range s {
		v := row[i]
		if v.IsNull() {
			rec[c.Name] = nil
			continue
		}
		if c.Kind == KindInt64 {
			n, ok := v.Int64()
			if !ok {
				return "", fmt.Errorf("column %s: %q is not an integer", c.Name, v.Text())
			}
			rec[c.Name] = n
			continue
		}
		rec[c.Name] = v.Text()
	}
	b, err := json.Marshal(rec)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
