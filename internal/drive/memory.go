package drive

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// Memory is an in-process Provider used in dev mode and in tests.
type Memory struct {
	mu      sync.Mutex
	objects map[string]*object
}

type object struct {
	ref        ObjectRef
	grid       [][]string
	paragraphs []Paragraph
	text       string
}

func NewMemory() *Memory {
	return &Memory{objects: make(map[string]*object)}
}

func (m *Memory) Resolve(_ context.Context, name string) (ObjectRef, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, obj := range m.objects {
		if obj.ref.Name == name {
			return obj.ref, nil
		}
	}
	return ObjectRef{}, ErrNotFound
}

func (m *Memory) Lookup(_ context.Context, id string) (ObjectRef, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	obj, ok := m.objects[id]
	if !ok {
		return ObjectRef{}, ErrNotFound
	}
	return obj.ref, nil
}

func (m *Memory) ReadGrid(_ context.Context, ref ObjectRef) ([][]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	obj, ok := m.objects[ref.ID]
	if !ok {
		return nil, ErrNotFound
	}
	out := make([][]string, len(obj.grid))
	for i, row := range obj.grid {
		out[i] = append([]string(nil), row...)
	}
	return out, nil
}

func (m *Memory) AppendRow(_ context.Context, ref ObjectRef, row []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	obj, ok := m.objects[ref.ID]
	if !ok {
		return ErrNotFound
	}
	obj.grid = append(obj.grid, append([]string(nil), row...))
	return nil
}

func (m *Memory) ReadDocParagraphs(_ context.Context, ref ObjectRef) ([]Paragraph, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	obj, ok := m.objects[ref.ID]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]Paragraph(nil), obj.paragraphs...), nil
}

func (m *Memory) AppendDocText(_ context.Context, ref ObjectRef, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	obj, ok := m.objects[ref.ID]
	if !ok {
		return ErrNotFound
	}
	obj.paragraphs = append(obj.paragraphs, splitParagraphs(text)...)
	return nil
}

func (m *Memory) ReadFlatText(_ context.Context, ref ObjectRef) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	obj, ok := m.objects[ref.ID]
	if !ok {
		return "", ErrNotFound
	}
	return obj.text, nil
}

func (m *Memory) OverwriteFlatText(_ context.Context, ref ObjectRef, content string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	obj, ok := m.objects[ref.ID]
	if !ok {
		return ErrNotFound
	}
	obj.text = content
	return nil
}

func (m *Memory) CreateObject(_ context.Context, name string, kind Kind, initialContent string) (ObjectRef, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ref := ObjectRef{ID: uuid.NewString(), Name: name, Kind: kind}
	obj := &object{ref: ref}
	switch kind {
	case KindDoc:
		obj.paragraphs = splitParagraphs(initialContent)
	default:
		obj.text = initialContent
	}
	m.objects[ref.ID] = obj
	return ref, nil
}

// SeedSheet registers a spreadsheet with the given rows. Row 0 is the header.
func (m *Memory) SeedSheet(name string, rows [][]string) ObjectRef {
	m.mu.Lock()
	defer m.mu.Unlock()
	ref := ObjectRef{ID: uuid.NewString(), Name: name, Kind: KindSheet}
	grid := make([][]string, len(rows))
	for i, row := range rows {
		grid[i] = append([]string(nil), row...)
	}
	m.objects[ref.ID] = &object{ref: ref, grid: grid}
	return ref
}

// SeedDoc registers a document with the given paragraphs.
func (m *Memory) SeedDoc(name string, paragraphs []Paragraph) ObjectRef {
	m.mu.Lock()
	defer m.mu.Unlock()
	ref := ObjectRef{ID: uuid.NewString(), Name: name, Kind: KindDoc}
	m.objects[ref.ID] = &object{ref: ref, paragraphs: append([]Paragraph(nil), paragraphs...)}
	return ref
}

// SeedText registers a flat text object with the given content.
func (m *Memory) SeedText(name string, content string) ObjectRef {
	m.mu.Lock()
	defer m.mu.Unlock()
	ref := ObjectRef{ID: uuid.NewString(), Name: name, Kind: KindText}
	m.objects[ref.ID] = &object{ref: ref, text: content}
	return ref
}

// splitParagraphs turns a text block into paragraphs on blank lines,
// keeping internal line breaks inside a paragraph.
func splitParagraphs(text string) []Paragraph {
	var out []Paragraph
	for _, block := range strings.Split(text, "\n\n") {
		block = strings.Trim(block, "\n")
		if strings.TrimSpace(block) == "" {
			continue
		}
		out = append(out, Paragraph{
			Text:   block,
			Bullet: strings.HasPrefix(strings.TrimSpace(block), "- ") || strings.HasPrefix(strings.TrimSpace(block), "• "),
		})
	}
	return out
}
