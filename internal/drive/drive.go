package drive

import (
	"context"
	"errors"
)

// Kind is the declared type of a storage object.
type Kind string

const (
	KindText  Kind = "text"
	KindSheet Kind = "sheet"
	KindDoc   Kind = "doc"
)

// ErrNotFound is returned when a name or identifier resolves to nothing.
var ErrNotFound = errors.New("drive: object not found")

type ObjectRef struct {
	ID   string
	Name string
	Kind Kind
}

type Paragraph struct {
	Text    string
	Heading bool
	Bullet  bool
}

// Provider exposes the create/read/update/append primitives of the backing
// storage service. Implementations are assumed correct; the pipeline does
// not retry provider calls.
//
// AppendRow must be an atomic append where the backend offers one. The
// flat-text path has no append primitive, so writers there do a full
// read-modify-write; concurrent flat-text writers are last-writer-wins.
type Provider interface {
	// Resolve finds an existing object by exact name match.
	Resolve(ctx context.Context, name string) (ObjectRef, error)
	// Lookup finds an existing object by its stable identifier.
	Lookup(ctx context.Context, id string) (ObjectRef, error)

	ReadGrid(ctx context.Context, ref ObjectRef) ([][]string, error)
	AppendRow(ctx context.Context, ref ObjectRef, row []string) error

	ReadDocParagraphs(ctx context.Context, ref ObjectRef) ([]Paragraph, error)
	AppendDocText(ctx context.Context, ref ObjectRef, text string) error

	ReadFlatText(ctx context.Context, ref ObjectRef) (string, error)
	OverwriteFlatText(ctx context.Context, ref ObjectRef, content string) error

	CreateObject(ctx context.Context, name string, kind Kind, initialContent string) (ObjectRef, error)
}
