package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

var ErrInvalidInput = errors.New("report document must be a JSON object")

// HasErrors extracts the Errors indicator from a raw report document.
// An absent or falsy Errors field counts as no errors.
func HasErrors(doc []byte) (bool, error) {
	fields, err := asObject(doc)
	if err != nil {
		return false, err
	}
	raw, ok := fields["Errors"]
	if !ok {
		return false, nil
	}
	return truthy(raw)
}

func asObject(doc []byte) (map[string]json.RawMessage, error) {
	trimmed := bytes.TrimSpace(doc)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, ErrInvalidInput
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &fields); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return fields, nil
}

func truthy(raw json.RawMessage) (bool, error) {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return false, err
	}
	switch value := v.(type) {
	case nil:
		return false, nil
	case bool:
		return value, nil
	case float64:
		return value != 0, nil
	case string:
		return value != "", nil
	case []any:
		return len(value) > 0, nil
	case map[string]any:
		return len(value) > 0, nil
	}
	return false, nil
}
