package docstore

import (
	"encoding/json"
	"fmt"
	"strings"
)

// MutationKind identifies what a Mutation does to its document.
type MutationKind int

const (
	// MutationMerge deep-merges Data into the document, creating it if needed.
	MutationMerge MutationKind = iota
	// MutationSet replaces the document with Data.
	MutationSet
	// MutationDelete removes the document.
	MutationDelete
)

func (k MutationKind) String() string {
	switch k {
	case MutationMerge:
		return "merge"
	case MutationSet:
		return "set"
	case MutationDelete:
		return "delete"
	default:
		return fmt.Sprintf("MutationKind(%d)", int(k))
	}
}

// Mutation is one resolved write against an absolute document path.
type Mutation struct {
	Kind MutationKind
	Path string
	Data Document
}

// Change is the final state of one document after a group of mutations.
// Data is nil when the document was deleted.
type Change struct {
	Path    string
	Data    []byte
	Deleted bool
}

// LoadFunc returns the stored bytes of a document, or nil when it does not exist.
type LoadFunc func(path string) ([]byte, error)

// Plan folds mutations over the current state of every document they touch
// and returns one Change per document, in first-touched order. Backends
// apply the returned changes inside a single transaction.
func Plan(muts []Mutation, load LoadFunc, maxBytes int) ([]Change, error) {
	type state struct {
		fields  map[string]any
		deleted bool
	}

	states := make(map[string]*state, len(muts))
	order := make([]string, 0, len(muts))

	for _, m := range muts {
		if err := ValidatePath(m.Path); err != nil {
			return nil, err
		}

		st, seen := states[m.Path]
		if !seen {
			raw, err := load(m.Path)
			if err != nil {
				return nil, fmt.Errorf("load %s: %w", m.Path, err)
			}
			st = &state{}
			if raw != nil {
				doc, err := ParseDocument(raw)
				if err != nil {
					return nil, fmt.Errorf("load %s: %w", m.Path, err)
				}
				st.fields = doc
			}
			states[m.Path] = st
			order = append(order, m.Path)
		}

		switch m.Kind {
		case MutationDelete:
			st.fields = nil
			st.deleted = true
		case MutationSet:
			st.fields = make(map[string]any, len(m.Data))
			st.deleted = false
			if err := mergeInto(st.fields, m.Data); err != nil {
				return nil, fmt.Errorf("set %s: %w", m.Path, err)
			}
		case MutationMerge:
			if st.fields == nil {
				st.fields = make(map[string]any, len(m.Data))
			}
			st.deleted = false
			if err := mergeInto(st.fields, m.Data); err != nil {
				return nil, fmt.Errorf("merge %s: %w", m.Path, err)
			}
		default:
			return nil, fmt.Errorf("unknown mutation kind %v for %s", m.Kind, m.Path)
		}
	}

	changes := make([]Change, 0, len(order))
	for _, path := range order {
		st := states[path]
		if st.deleted {
			changes = append(changes, Change{Path: path, Deleted: true})
			continue
		}
		if st.fields == nil {
			continue
		}
		data, err := json.Marshal(st.fields)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", path, err)
		}
		if maxBytes > 0 && len(data) > maxBytes {
			return nil, fmt.Errorf("%s is %d bytes (limit %d): %w", path, len(data), maxBytes, ErrDocumentTooLarge)
		}
		changes = append(changes, Change{Path: path, Data: data})
	}

	return changes, nil
}

// ValidatePath checks that path names a document: an even, non-zero number
// of non-empty segments (collection/id pairs).
func ValidatePath(path string) error {
	segments := strings.Split(path, "/")
	if len(segments)%2 != 0 {
		return fmt.Errorf("%q is not a document path: %w", path, ErrInvalidPath)
	}
	for _, s := range segments {
		if s == "" {
			return fmt.Errorf("%q has an empty segment: %w", path, ErrInvalidPath)
		}
	}
	return nil
}

// SplitPath returns the collection path and the document id of a document path.
func SplitPath(path string) (collection, id string) {
	i := strings.LastIndexByte(path, '/')
	if i < 0 {
		return "", path
	}
	return path[:i], path[i+1:]
}
