package state

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

// JSONStore keeps the state as an indented JSON object in a single file.
// Writes overwrite the file in place; there is no locking.
type JSONStore struct {
	path string
}

func NewJSONStore(path string) *JSONStore {
	return &JSONStore{path: path}
}

func (js *JSONStore) Path() string { return js.path }

// Load reads the file. A missing file is not an error.
func (js *JSONStore) Load(_ context.Context) (State, error) {
	data, err := os.ReadFile(js.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return State{}, nil
		}
		return State{}, fmt.Errorf("read state file %s: %w", js.path, err)
	}

	var st State
	if err := json.Unmarshal(data, &st); err != nil {
		return State{}, fmt.Errorf("decode state file %s: %w", js.path, err)
	}
	if st == nil {
		st = State{}
	}
	return st, nil
}

// Save overwrites the file with the current mapping.
func (js *JSONStore) Save(_ context.Context, s State) error {
	if s == nil {
		s = State{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(s); err != nil {
		return fmt.Errorf("encode state: %w", err)
	}
	if err := os.WriteFile(js.path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write state file %s: %w", js.path, err)
	}
	return nil
}

func (js *JSONStore) Close() error { return nil }
