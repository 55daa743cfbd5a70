package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mlbench/benchdash/internal/dataset"
	"gopkg.in/yaml.v3"
)

const fileSourceName = "file"

// File reads records from a local JSON, YAML or CSV document. The file is
// re-read on every Fetch so edits are picked up on the next refresh.
type File struct {
	path string
}

// NewFile creates a File provider for path.
func NewFile(path string) *File {
	return &File{path: path}
}

// Name implements Provider.
func (f *File) Name() string { return fileSourceName }

// Fetch implements Provider.
func (f *File) Fetch(ctx context.Context) ([]map[string]any, error) {
	if err := ctx.Err(); err != nil {
		return nil, &Error{Source: fileSourceName, Op: "read " + f.path, Err: err}
	}
	data, err := os.ReadFile(f.path)
	if err != nil {
		return nil, &Error{Source: fileSourceName, Op: "read " + f.path, Err: err}
	}
	records, err := Decode(f.path, data)
	if err != nil {
		return nil, &Error{Source: fileSourceName, Op: "decode " + f.path, Err: err}
	}
	return records, nil
}

// Decode parses a record document. The format follows the extension of
// name: .csv, .yaml/.yml, anything else is JSON. The document is either a
// list of records or an object holding the list under "data" or "records",
// which is the shape written by the snapshot command.
func Decode(name string, data []byte) ([]map[string]any, error) {
	var doc any
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv":
		rows, err := dataset.ReadCSV(bytes.NewReader(data), name)
		if err != nil {
			return nil, err
		}
		records := dataset.Records(rows)
		if len(records) == 0 {
			return nil, ErrNoRecords
		}
		return records, nil
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("parsing YAML: %w", err)
		}
	default:
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("parsing JSON: %w", err)
		}
	}

	list, err := recordList(doc)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, ErrNoRecords
	}
	records := make([]map[string]any, len(list))
	for i, item := range list {
		// Non-object entries become nil so the normalizer reports them.
		records[i], _ = item.(map[string]any)
	}
	return records, nil
}

func recordList(doc any) ([]any, error) {
	switch v := doc.(type) {
	case []any:
		return v, nil
	case map[string]any:
		for _, key := range []string{"data", "records"} {
			if list, ok := v[key].([]any); ok {
				return list, nil
			}
		}
		return nil, errors.New(`object document has no "data" or "records" list`)
	case nil:
		return nil, nil
	default:
		return nil, fmt.Errorf("unsupported document type %T", doc)
	}
}
