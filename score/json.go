package score

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// jsonNote is the object form of a score row
type jsonNote struct {
	Start    json.Number `json:"start"`
	Duration json.Number `json:"duration"`
	Pitch    json.Number `json:"pitch"`
	ID       any         `json:"id"`
}

// LoadJSON reads a JSON note list from path
func LoadJSON(path string) (*Score, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	rows, err := ReadJSON(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return newScore(path, rows)
}

// ReadJSON decodes a JSON array whose elements are either rows
// [start, duration, pitch, id?] or objects {start, duration, pitch, id}.
// A top-level object with a "notes" array is accepted as well. Values are
// kept loosely typed; validation happens when the rows are loaded.
func ReadJSON(r io.Reader) ([][]any, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '{' {
		var wrapper struct {
			Notes json.RawMessage `json:"notes"`
		}
		if err := json.Unmarshal(data, &wrapper); err != nil {
			return nil, fmt.Errorf("invalid score json: %w", err)
		}
		data = wrapper.Notes
	}

	var items []json.RawMessage
	if err := decodeNumbers(data, &items); err != nil {
		return nil, fmt.Errorf("invalid score json: %w", err)
	}

	rows := make([][]any, 0, len(items))
	for _, item := range items {
		item = bytes.TrimSpace(item)
		if len(item) == 0 {
			continue
		}

		switch item[0] {
		case '[':
			var row []any
			if err := decodeNumbers(item, &row); err != nil {
				rows = append(rows, nil)
				continue
			}
			rows = append(rows, row)
		case '{':
			var n jsonNote
			if err := decodeNumbers(item, &n); err != nil {
				rows = append(rows, nil)
				continue
			}
			row := []any{n.Start, n.Duration, n.Pitch}
			if n.ID != nil {
				row = append(row, n.ID)
			}
			rows = append(rows, row)
		default:
			// malformed entries are counted as dropped downstream
			rows = append(rows, nil)
		}
	}

	if len(rows) == 0 {
		return nil, ErrNoNotes
	}
	return rows, nil
}

func decodeNumbers(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	return dec.Decode(v)
}
