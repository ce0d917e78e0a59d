package domain

import (
	"fmt"
	"time"

	"github.com/MrSnakeDoc/bookboard/internal/docstore"
)

// MaxBooksPerDocument is the capacity of one chunk document.
const MaxBooksPerDocument = 300

// Document field names.
const (
	fieldColorTheme          = "colorTheme"
	fieldPlants              = "plants"
	fieldCompletedBooksCount = "completedBooksCount"
	fieldBoardsMetadata      = "boardsMetadata"
	fieldLastSelectedBoardID = "lastSelectedBoardId"

	fieldTotalBooksAdded  = "totalBooksAdded"
	fieldUnreadBooksOrder = "unreadBooksOrder"

	fieldName        = "name"
	fieldTimeCreated = "timeCreated"

	fieldTitle         = "title"
	fieldAuthor        = "author"
	fieldChunk         = "chunk"
	fieldRating        = "rating"
	fieldReview        = "review"
	fieldTimeCompleted = "timeCompleted"
)

// BoardMetadata is what the user document knows about a board before its
// contents are loaded.
type BoardMetadata struct {
	Name        string
	TimeCreated time.Time
}

// MetadataRecord is the stored form of BoardMetadata.
type MetadataRecord struct {
	Name        string `json:"name"`
	TimeCreated int64  `json:"timeCreated"`
}

// UserRecord is the decoded users/{uid} document.
type UserRecord struct {
	ColorTheme          string                    `json:"colorTheme"`
	Plants              Plants                    `json:"plants"`
	CompletedBooksCount int                       `json:"completedBooksCount"`
	BoardsMetadata      map[string]MetadataRecord `json:"boardsMetadata"`
	LastSelectedBoardID string                    `json:"lastSelectedBoardId"`
}

// DecodeUserRecord decodes a user document. Missing fields stay zero.
func DecodeUserRecord(doc docstore.Document) (UserRecord, error) {
	var rec UserRecord
	if err := docstore.Decode(doc, &rec); err != nil {
		return UserRecord{}, fmt.Errorf("user document: %w", err)
	}
	return rec, nil
}

// Metadata returns the board metadata of the record.
func (r UserRecord) Metadata() map[string]BoardMetadata {
	out := make(map[string]BoardMetadata, len(r.BoardsMetadata))
	for id, m := range r.BoardsMetadata {
		out[id] = BoardMetadata{Name: m.Name, TimeCreated: time.UnixMilli(m.TimeCreated)}
	}
	return out
}

type boardRecord struct {
	TotalBooksAdded  int      `json:"totalBooksAdded"`
	UnreadBooksOrder []string `json:"unreadBooksOrder"`
}

type bookRecord struct {
	Title         string  `json:"title"`
	Author        string  `json:"author"`
	Chunk         int     `json:"chunk"`
	Rating        *int    `json:"rating,omitempty"`
	Review        *string `json:"review,omitempty"`
	TimeCompleted *int64  `json:"timeCompleted,omitempty"`
}

func metadataFields(m BoardMetadata) docstore.Document {
	return docstore.Document{
		fieldName:        m.Name,
		fieldTimeCreated: m.TimeCreated.UnixMilli(),
	}
}

// MetadataDocument is the boardsMetadata field value for a set of boards.
func MetadataDocument(meta map[string]BoardMetadata) docstore.Document {
	doc := make(docstore.Document, len(meta))
	for id, m := range meta {
		doc[id] = metadataFields(m)
	}
	return doc
}

// BookFields returns the chunk-document entry of a book with unset
// optional fields left out.
func BookFields(b *Book) docstore.Document {
	doc := docstore.Document{
		fieldTitle:  b.Title,
		fieldAuthor: b.Author,
		fieldChunk:  b.Chunk,
	}
	if b.Rating != nil {
		doc[fieldRating] = *b.Rating
	}
	if b.Review != nil {
		doc[fieldReview] = *b.Review
	}
	if b.TimeCompleted != nil {
		doc[fieldTimeCompleted] = b.TimeCompleted.UnixMilli()
	}
	return doc
}

func decodeBook(id string, v any) (*Book, error) {
	fields, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("book %s: entry is %T, not an object", id, v)
	}

	var rec bookRecord
	if err := docstore.Decode(fields, &rec); err != nil {
		return nil, fmt.Errorf("book %s: %w", id, err)
	}

	b := &Book{
		ID:     id,
		Title:  rec.Title,
		Author: rec.Author,
		Chunk:  rec.Chunk,
		Rating: rec.Rating,
		Review: rec.Review,
	}
	if rec.TimeCompleted != nil {
		t := time.UnixMilli(*rec.TimeCompleted)
		b.TimeCompleted = &t
	}
	return b, nil
}

func decodeBoard(doc docstore.Document) (boardRecord, error) {
	var rec boardRecord
	if err := docstore.Decode(doc, &rec); err != nil {
		return boardRecord{}, fmt.Errorf("board document: %w", err)
	}
	return rec, nil
}

// BoardListFields is the part of the user document describing the boards:
// their metadata and the last selected one.
func BoardListFields(meta map[string]BoardMetadata, lastSelectedBoardID string) docstore.Document {
	return docstore.Document{
		fieldBoardsMetadata:      MetadataDocument(meta),
		fieldLastSelectedBoardID: lastSelectedBoardID,
	}
}

// BoardFields is the board document of b.
func BoardFields(b *Board) docstore.Document {
	order := make([]string, len(b.UnreadBooksOrder))
	copy(order, b.UnreadBooksOrder)
	return docstore.Document{
		fieldTotalBooksAdded:  b.TotalBooksAdded,
		fieldUnreadBooksOrder: order,
	}
}
