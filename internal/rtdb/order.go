package rtdb

import (
	"bytes"
	"encoding/json"
)

// orderByKey re-renders a query result so object members appear in key
// order, matching what Memory returns. Members holding null are dropped and
// an object whose remaining keys are exactly 0..n-1 becomes an array.
// Arrays and scalars are returned unchanged.
func orderByKey(raw json.RawMessage) (json.RawMessage, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return raw, nil
	}

	var members map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &members); err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(members))
	for k, v := range members {
		if string(bytes.TrimSpace(v)) == "null" {
			continue
		}
		keys = append(keys, k)
	}
	SortKeys(keys)

	var buf bytes.Buffer
	if isDense(keys) {
		buf.WriteByte('[')
		for i, k := range keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			buf.Write(members[k])
		}
		buf.WriteByte(']')
		return buf.Bytes(), nil
	}

	buf.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		name, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(name)
		buf.WriteByte(':')
		buf.Write(members[k])
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
