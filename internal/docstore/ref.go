package docstore

import (
	"strconv"
	"strings"
)

// Ref addresses a document or collection relative to the signed-in user's
// root document. It is resolved against a uid only when a read or write is
// issued.
type Ref struct {
	segments []string
}

// UserDoc is users/{uid}.
func UserDoc() Ref { return Ref{} }

// BoardDoc is users/{uid}/boards/{boardID}.
func BoardDoc(boardID string) Ref {
	return Ref{segments: []string{"boards", boardID}}
}

// ChunkDoc is users/{uid}/boards/{boardID}/chunks/{chunk}.
func ChunkDoc(boardID string, chunk int) Ref {
	return Ref{segments: []string{"boards", boardID, "chunks", strconv.Itoa(chunk)}}
}

// ChunkCollection is users/{uid}/boards/{boardID}/chunks.
func ChunkCollection(boardID string) Ref {
	return Ref{segments: []string{"boards", boardID, "chunks"}}
}

// Path resolves the ref for uid.
func (r Ref) Path(uid string) string {
	var b strings.Builder
	b.WriteString("users/")
	b.WriteString(uid)
	for _, s := range r.segments {
		b.WriteByte('/')
		b.WriteString(s)
	}
	return b.String()
}

func (r Ref) String() string {
	return r.Path("{uid}")
}
