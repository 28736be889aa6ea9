package telemetry

import (
	"encoding/json"
	"reflect"
	"testing"
)

func TestDecodeCollection_Shapes(t *testing.T) {
	cases := []struct {
		doc   string
		shape Shape
		n     int
	}{
		{"", Empty, 0},
		{"null", Empty, 0},
		{" null ", Empty, 0},
		{"[]", Sequence, 0},
		{`[{"a":1},null]`, Sequence, 2},
		{"{}", Mapping, 0},
		{`{"x":{"a":1},"y":null}`, Mapping, 2},
	}
	for _, c := range cases {
		got, err := DecodeCollection(json.RawMessage(c.doc))
		if err != nil {
			t.Errorf("DecodeCollection(%q): %v", c.doc, err)
			continue
		}
		if got.Shape != c.shape || len(got.Entries) != c.n {
			t.Errorf("DecodeCollection(%q): got %s/%d, want %s/%d", c.doc, got.Shape, len(got.Entries), c.shape, c.n)
		}
	}
}

func TestDecodeCollection_MappingKeys(t *testing.T) {
	got, err := DecodeCollection(json.RawMessage(`{"10":1,"9":2,"-Nq":3}`))
	if err != nil {
		t.Fatalf("DecodeCollection: %v", err)
	}
	if !reflect.DeepEqual(got.Keys, []string{"10", "9", "-Nq"}) {
		t.Errorf("keys: got %v", got.Keys)
	}
}

func TestDecodeCollection_Errors(t *testing.T) {
	for _, doc := range []string{`42`, `"text"`, `true`, `[1,`, `{"a":}`} {
		if _, err := DecodeCollection(json.RawMessage(doc)); err == nil {
			t.Errorf("DecodeCollection(%q): expected error", doc)
		}
	}
}
