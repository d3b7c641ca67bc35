package meta

import (
	"strings"

	"github.com/xtxerr/minidas/internal/errors"
)

// Entry is one flattened (path, value) pair. Paths are the root key
// followed by the /-joined key sequence down to the node.
type Entry struct {
	Path  string
	Value Value
}

// Encode flattens a tree depth-first into path/value entries rooted at
// rootKey. Leaf values become one entry each; a nested mapping recurses
// without becoming an entry itself, except that an empty mapping emits
// a group marker entry (KindTree value) so it survives a round trip.
//
// A value outside the closed kind set fails with an error naming the
// offending path and no partial output is returned. Construction
// already guards against such values; the check here mirrors where the
// storage layer has to give up.
func Encode(rootKey string, t *Tree) ([]Entry, error) {
	if err := ValidateKey(rootKey); err != nil {
		return nil, err
	}
	if t == nil {
		return nil, errors.NewInvalidParameter("tree", nil, "nil tree")
	}

	var entries []Entry
	err := t.Walk(func(path string, v Value) error {
		full := rootKey + "/" + path
		switch v.Kind() {
		case KindFloat, KindInt, KindString, KindFloats, KindInts:
			entries = append(entries, Entry{Path: full, Value: v})
		case KindTree:
			if v.Tree().Len() == 0 {
				entries = append(entries, Entry{Path: full, Value: v})
			}
		default:
			return errors.NewUnsupportedValueKind(full, v)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// Decode rebuilds a tree from flattened entries. Every path must start
// with rootKey; intermediate segments become nested mappings. The
// sibling order of the original tree is not recovered (entries carry
// no order beyond their paths).
func Decode(rootKey string, entries []Entry) (*Tree, error) {
	if err := ValidateKey(rootKey); err != nil {
		return nil, err
	}

	root := NewTree()
	for _, e := range entries {
		segs, err := splitPath(rootKey, e.Path)
		if err != nil {
			return nil, err
		}

		node := root
		for _, seg := range segs[:len(segs)-1] {
			child, ok := node.Get(seg)
			if !ok {
				sub := NewTree()
				if err := node.Set(seg, SubTree(sub)); err != nil {
					return nil, errors.Wrapf(err, "path %q", e.Path)
				}
				node = sub
				continue
			}
			if child.Kind() != KindTree {
				return nil, errors.Wrapf(errors.ErrInvalidKey,
					"path %q descends through leaf segment %q", e.Path, seg)
			}
			node = child.Tree()
		}

		last := segs[len(segs)-1]
		if prev, ok := node.Get(last); ok {
			// A group marker may be superseded by entries below it,
			// but two values at one path is a broken encoding.
			if prev.Kind() != KindTree || e.Value.Kind() != KindTree {
				return nil, errors.Wrapf(errors.ErrInvalidKey, "duplicate path %q", e.Path)
			}
			continue
		}

		v := e.Value
		if v.Kind() == KindTree {
			v = SubTree(NewTree())
		}
		if err := node.Set(last, v); err != nil {
			return nil, errors.Wrapf(err, "path %q", e.Path)
		}
	}
	return root, nil
}

// splitPath strips the root key and returns the remaining segments.
func splitPath(rootKey, path string) ([]string, error) {
	if !strings.HasPrefix(path, rootKey+"/") {
		return nil, errors.Wrapf(errors.ErrInvalidKey,
			"path %q is not rooted at %q", path, rootKey)
	}
	rest := strings.TrimPrefix(path, rootKey+"/")
	segs := strings.Split(rest, "/")
	for _, seg := range segs {
		if err := ValidateKey(seg); err != nil {
			return nil, errors.Wrapf(err, "path %q", path)
		}
	}
	return segs, nil
}
