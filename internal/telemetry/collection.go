package telemetry

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Shape is the wire form a multi-record query result arrived in.
type Shape int

const (
	// Empty means the store returned nothing.
	Empty Shape = iota
	// Sequence means the keys were exactly 0..n-1 and the store sent an array.
	Sequence
	// Mapping means the store sent a key-to-record object.
	Mapping
)

func (s Shape) String() string {
	switch s {
	case Sequence:
		return "sequence"
	case Mapping:
		return "mapping"
	default:
		return "empty"
	}
}

// Collection is a query result normalized at ingestion: both wire shapes
// become one list of raw entries in the order the store sent them.
type Collection struct {
	Shape   Shape
	Keys    []string // Mapping only, parallel to Entries
	Entries []json.RawMessage
}

// DecodeCollection classifies raw as Empty, Sequence or Mapping. Mapping
// members keep their wire order. Any other JSON value is an error.
func DecodeCollection(raw json.RawMessage) (Collection, error) {
	if isNull(raw) {
		return Collection{Shape: Empty}, nil
	}
	t := bytes.TrimSpace(raw)

	switch t[0] {
	case '[':
		var entries []json.RawMessage
		if err := json.Unmarshal(t, &entries); err != nil {
			return Collection{}, fmt.Errorf("decode sequence: %w", err)
		}
		return Collection{Shape: Sequence, Entries: entries}, nil

	case '{':
		keys, entries, err := decodeOrderedObject(t)
		if err != nil {
			return Collection{}, fmt.Errorf("decode mapping: %w", err)
		}
		return Collection{Shape: Mapping, Keys: keys, Entries: entries}, nil

	default:
		return Collection{}, fmt.Errorf("unexpected collection value %.32q", t)
	}
}

// Each calls fn for every entry in wire order.
func (c Collection) Each(fn func(json.RawMessage)) {
	for _, e := range c.Entries {
		fn(e)
	}
}

// decodeOrderedObject walks a JSON object with the token API so member
// order is preserved.
func decodeOrderedObject(data []byte) (keys []string, values []json.RawMessage, err error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	if _, err := dec.Token(); err != nil { // opening brace
		return nil, nil, err
	}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, nil, fmt.Errorf("object key %v is not a string", tok)
		}
		var v json.RawMessage
		if err := dec.Decode(&v); err != nil {
			return nil, nil, fmt.Errorf("member %q: %w", key, err)
		}
		keys = append(keys, key)
		values = append(values, v)
	}
	if _, err := dec.Token(); err != nil { // closing brace
		return nil, nil, err
	}
	return keys, values, nil
}
