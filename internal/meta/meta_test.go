package meta

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/xtxerr/minidas/internal/errors"
)

func buildTestTree(t *testing.T) *Tree {
	t.Helper()

	tree := NewTree()
	if err := tree.SetAny("scalar", 3.14159265358979); err != nil {
		t.Fatalf("set scalar: %v", err)
	}
	if err := tree.SetAny("vector", []int64{10, 11, 12, 13, 14, 15, 16, 17, 18, 19}); err != nil {
		t.Fatalf("set vector: %v", err)
	}
	if err := tree.SetAny("string", "This is a test"); err != nil {
		t.Fatalf("set string: %v", err)
	}

	nested := NewTree()
	if err := nested.SetAny("val1", 1.23); err != nil {
		t.Fatalf("set val1: %v", err)
	}
	if err := nested.SetAny("val2", "dummy"); err != nil {
		t.Fatalf("set val2: %v", err)
	}
	if err := tree.Set("dict", SubTree(nested)); err != nil {
		t.Fatalf("set dict: %v", err)
	}

	return tree
}

func TestEncodeDecode_RoundTrip(t *testing.T) {
	tree := buildTestTree(t)

	entries, err := Encode("meta", tree)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	// scalar, vector, string, dict/val1, dict/val2
	if len(entries) != 5 {
		t.Fatalf("expected 5 entries, got %d", len(entries))
	}
	for _, e := range entries {
		if e.Path[:5] != "meta/" {
			t.Errorf("entry path %q not rooted at meta", e.Path)
		}
	}

	decoded, err := Decode("meta", entries)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	if !decoded.Equal(tree) {
		t.Errorf("round trip mismatch: %s", cmp.Diff(tree, decoded))
	}
}

func TestEncode_Paths(t *testing.T) {
	tree := buildTestTree(t)

	entries, err := Encode("meta", tree)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	want := map[string]Kind{
		"meta/scalar":    KindFloat,
		"meta/vector":    KindInts,
		"meta/string":    KindString,
		"meta/dict/val1": KindFloat,
		"meta/dict/val2": KindString,
	}
	for _, e := range entries {
		k, ok := want[e.Path]
		if !ok {
			t.Errorf("unexpected entry %q", e.Path)
			continue
		}
		if e.Value.Kind() != k {
			t.Errorf("entry %q: kind %v, want %v", e.Path, e.Value.Kind(), k)
		}
		delete(want, e.Path)
	}
	for p := range want {
		t.Errorf("missing entry %q", p)
	}
}

func TestEncode_EmptyGroupSurvives(t *testing.T) {
	tree := NewTree()
	if err := tree.Set("empty", SubTree(NewTree())); err != nil {
		t.Fatalf("set: %v", err)
	}

	entries, err := Encode("meta", tree)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if len(entries) != 1 || entries[0].Value.Kind() != KindTree {
		t.Fatalf("expected one group marker entry, got %v", entries)
	}

	decoded, err := Decode("meta", entries)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !decoded.Equal(tree) {
		t.Errorf("empty group lost in round trip")
	}
}

func TestFromAny_RejectsHeterogeneousList(t *testing.T) {
	_, err := FromAny([]interface{}{1, "a", 2.0})
	if !errors.Is(err, errors.ErrUnsupportedValueKind) {
		t.Fatalf("expected ErrUnsupportedValueKind, got %v", err)
	}

	// Same rejection through a nested map, with no partial tree kept.
	tree := NewTree()
	err = tree.SetAny("nested", map[string]interface{}{
		"ok":  1.0,
		"bad": []interface{}{1, "a", 2.0},
	})
	if !errors.Is(err, errors.ErrUnsupportedValueKind) {
		t.Fatalf("expected ErrUnsupportedValueKind, got %v", err)
	}
	if tree.Len() != 0 {
		t.Errorf("partial value stored after rejection")
	}
}

func TestSet_RejectsBadKeys(t *testing.T) {
	tree := NewTree()
	for _, key := range []string{"", "a/b", "a\\b", ".", "..", ".hidden", "x\x00y"} {
		if err := tree.Set(key, Float(1)); !errors.Is(err, errors.ErrInvalidKey) {
			t.Errorf("key %q: expected ErrInvalidKey, got %v", key, err)
		}
	}
}

func TestDecode_RejectsForeignRoot(t *testing.T) {
	entries := []Entry{{Path: "other/scalar", Value: Float(1)}}
	if _, err := Decode("meta", entries); !errors.Is(err, errors.ErrInvalidKey) {
		t.Fatalf("expected ErrInvalidKey, got %v", err)
	}
}

func TestDecode_RejectsDuplicatePath(t *testing.T) {
	entries := []Entry{
		{Path: "meta/x", Value: Float(1)},
		{Path: "meta/x", Value: Float(2)},
	}
	if _, err := Decode("meta", entries); !errors.Is(err, errors.ErrInvalidKey) {
		t.Fatalf("expected ErrInvalidKey, got %v", err)
	}
}

func TestDecode_RejectsLeafCollision(t *testing.T) {
	entries := []Entry{
		{Path: "meta/x", Value: Float(1)},
		{Path: "meta/x/y", Value: Float(2)},
	}
	if _, err := Decode("meta", entries); !errors.Is(err, errors.ErrInvalidKey) {
		t.Fatalf("expected ErrInvalidKey, got %v", err)
	}
}
