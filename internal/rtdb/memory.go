package rtdb

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"sync"

	"github.com/google/uuid"
)

// Memory is an in-process realtime store. It keeps the same data model as
// the hosted database (a tree of objects whose leaves are JSON scalars) and
// renders nodes the same way: an object whose keys are exactly 0..n-1 is
// returned as a JSON array, any other object as a JSON object with members
// in key order.
//
// Memory is safe for concurrent use.
type Memory struct {
	mu   sync.RWMutex
	root any // nil | map[string]any | scalar
}

// NewMemory returns an empty Memory store.
func NewMemory() *Memory {
	return &Memory{}
}

// Load replaces the whole tree with the JSON document read from r.
func (m *Memory) Load(r io.Reader) error {
	var doc any
	dec := json.NewDecoder(r)
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return fmt.Errorf("rtdb: load seed: %w", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.root = normalize(doc)
	return nil
}

// Set writes v at path, replacing whatever was there.
func (m *Memory) Set(_ context.Context, path string, v any) error {
	node, err := toNode(v)
	if err != nil {
		return fmt.Errorf("rtdb: set %q: %w", path, err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.root = setAt(m.root, splitPath(path), node)
	return nil
}

// Get implements Store.
func (m *Memory) Get(_ context.Context, path string, v any) error {
	m.mu.RLock()
	node := lookup(m.root, splitPath(path))
	var buf bytes.Buffer
	err := encodeNode(&buf, node)
	m.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("rtdb: get %q: %w", path, err)
	}
	if err := json.Unmarshal(buf.Bytes(), v); err != nil {
		return fmt.Errorf("rtdb: get %q: decode: %w", path, err)
	}
	return nil
}

// LastByKey implements Store.
func (m *Memory) LastByKey(_ context.Context, path string, n int, v any) error {
	if n <= 0 {
		return fmt.Errorf("rtdb: query %q: limit must be positive, got %d", path, n)
	}
	m.mu.RLock()
	node := lookup(m.root, splitPath(path))
	if obj, ok := node.(map[string]any); ok {
		keys := sortedKeys(obj)
		if len(keys) > n {
			keys = keys[len(keys)-n:]
		}
		sub := make(map[string]any, len(keys))
		for _, k := range keys {
			sub[k] = obj[k]
		}
		node = sub
	}
	var buf bytes.Buffer
	err := encodeNode(&buf, node)
	m.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("rtdb: query %q: %w", path, err)
	}
	if err := json.Unmarshal(buf.Bytes(), v); err != nil {
		return fmt.Errorf("rtdb: query %q: decode: %w", path, err)
	}
	return nil
}

// Push implements Store. Keys are UUIDv7 strings, which sort in creation order.
func (m *Memory) Push(_ context.Context, path string, v any) (string, error) {
	node, err := toNode(v)
	if err != nil {
		return "", fmt.Errorf("rtdb: push %q: %w", path, err)
	}
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("rtdb: push %q: generate key: %w", path, err)
	}
	key := id.String()

	m.mu.Lock()
	defer m.mu.Unlock()
	m.root = setAt(m.root, append(splitPath(path), key), node)
	return key, nil
}

// Delete implements Store.
func (m *Memory) Delete(_ context.Context, path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.root = setAt(m.root, splitPath(path), nil)
	return nil
}

// --- tree helpers -----------------------------------------------------------

// toNode converts an arbitrary Go value into the tree representation by
// round-tripping it through JSON.
func toNode(v any) (any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&out); err != nil {
		return nil, err
	}
	return normalize(out), nil
}

// normalize turns arrays into index-keyed objects and prunes nulls and
// empty objects, which the database never stores.
func normalize(v any) any {
	switch t := v.(type) {
	case []any:
		obj := make(map[string]any, len(t))
		for i, e := range t {
			if n := normalize(e); n != nil {
				obj[strconv.Itoa(i)] = n
			}
		}
		if len(obj) == 0 {
			return nil
		}
		return obj
	case map[string]any:
		for k, e := range t {
			if n := normalize(e); n != nil {
				t[k] = n
			} else {
				delete(t, k)
			}
		}
		if len(t) == 0 {
			return nil
		}
		return t
	default:
		return v
	}
}

func lookup(node any, segs []string) any {
	for _, s := range segs {
		obj, ok := node.(map[string]any)
		if !ok {
			return nil
		}
		node = obj[s]
	}
	return node
}

// setAt returns node with the value at segs replaced by val (nil deletes).
// Empty parents left behind by a delete are pruned.
func setAt(node any, segs []string, val any) any {
	if len(segs) == 0 {
		return val
	}
	obj, ok := node.(map[string]any)
	if !ok {
		if val == nil {
			return node
		}
		obj = make(map[string]any)
	}
	child := setAt(obj[segs[0]], segs[1:], val)
	if child == nil {
		delete(obj, segs[0])
	} else {
		obj[segs[0]] = child
	}
	if len(obj) == 0 {
		return nil
	}
	return obj
}

func sortedKeys(obj map[string]any) []string {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	SortKeys(keys)
	return keys
}

// isDense reports whether keys (already sorted) are exactly "0".."n-1".
func isDense(keys []string) bool {
	for i, k := range keys {
		if k != strconv.Itoa(i) {
			return false
		}
	}
	return len(keys) > 0
}

// encodeNode writes node as JSON, emitting object members in key order and
// dense index-keyed objects as arrays.
func encodeNode(buf *bytes.Buffer, node any) error {
	obj, ok := node.(map[string]any)
	if !ok {
		data, err := json.Marshal(node)
		if err != nil {
			return err
		}
		buf.Write(data)
		return nil
	}

	keys := sortedKeys(obj)
	if isDense(keys) {
		buf.WriteByte('[')
		for i, k := range keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := encodeNode(buf, obj[k]); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
		return nil
	}

	buf.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		name, err := json.Marshal(k)
		if err != nil {
			return err
		}
		buf.Write(name)
		buf.WriteByte(':')
		if err := encodeNode(buf, obj[k]); err != nil {
			return err
		}
	}
	buf.WriteByte('}')
	return nil
}
