package storage

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadRecords reads timeline documents from a YAML or JSON file. The file may
// hold a single document, a list of documents, or several YAML documents
// separated by "---". Every document must have a savedObjectId.
func LoadRecords(path string) ([]json.RawMessage, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	docs, err := ParseRecords(data)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return docs, nil
}

// ParseRecords parses timeline documents from YAML or JSON data.
func ParseRecords(data []byte) ([]json.RawMessage, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))

	var out []json.RawMessage
	for i := 0; ; i++ {
		var v any
		err := dec.Decode(&v)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("document %d: %w", i, err)
		}

		var items []any
		switch t := v.(type) {
		case nil:
			continue
		case []any:
			items = t
		default:
			items = []any{t}
		}

		for _, item := range items {
			doc, err := json.Marshal(item)
			if err != nil {
				return nil, fmt.Errorf("document %d: %w", i, err)
			}
			if _, err := parseRecord(doc); err != nil {
				return nil, fmt.Errorf("document %d: %w", i, err)
			}
			out = append(out, doc)
		}
	}
	return out, nil
}
