// Package writer appends extracted data to a destination in whatever
// format the destination already uses.
package writer

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"pagescribe/internal/drive"
	"pagescribe/internal/extract"
	"pagescribe/internal/format"
	"pagescribe/internal/mapper"
)

// Meta is the capture context recorded alongside the extracted fields.
type Meta struct {
	AutomationTitle string
	URL             string
	Timestamp       string
}

// Outcome reports where a write landed.
type Outcome struct {
	Stored bool
	Kind   string
	Ref    string
}

// Writer routes a write to the destination's kind and shapes the entry to
// match the format the analyzer observed.
type Writer struct {
	Provider drive.Provider
	Mapper   *mapper.Mapper
}

func New(provider drive.Provider, m *mapper.Mapper) *Writer {
	return &Writer{Provider: provider, Mapper: m}
}

// Write appends one entry. Spreadsheets get a positional row mapped to the
// existing headers, documents get an entry shaped like the ones already
// there, flat text gets a delimited block. A destination that was named
// but does not exist is created on this first write.
func (w *Writer) Write(ctx context.Context, analysis *format.Analysis, extracted *extract.Result, meta Meta) (Outcome, error) {
	switch {
	case analysis.Sheet != nil:
		return w.writeSheet(ctx, analysis, extracted, meta)
	case analysis.Doc != nil:
		return w.writeDoc(ctx, analysis, extracted, meta)
	case analysis.Text != nil:
		return w.writeText(ctx, analysis, extracted, meta)
	}
	return Outcome{}, fmt.Errorf("analysis for %q names no destination shape", analysis.Ref.Name)
}

// AppendEntry appends a pre-rendered entry to a document or flat-text
// destination, creating an unresolved named destination on first write.
// Spreadsheets take rows, not blocks, so they are rejected here.
func (w *Writer) AppendEntry(ctx context.Context, analysis *format.Analysis, entry string) (Outcome, error) {
	switch {
	case analysis.Sheet != nil:
		return Outcome{}, fmt.Errorf("cannot append a text entry to spreadsheet %q", analysis.Ref.Name)
	case analysis.Doc != nil:
		if err := w.Provider.AppendDocText(ctx, analysis.Ref, entry); err != nil {
			return Outcome{}, fmt.Errorf("append to document: %w", err)
		}
		return Outcome{Stored: true, Kind: string(drive.KindDoc), Ref: analysis.Ref.ID}, nil
	case analysis.Text != nil:
		return w.appendFlatText(ctx, analysis, entry)
	}
	return Outcome{}, fmt.Errorf("analysis for %q names no destination shape", analysis.Ref.Name)
}

func (w *Writer) appendFlatText(ctx context.Context, analysis *format.Analysis, entry string) (Outcome, error) {
	if !analysis.Resolved {
		ref, err := w.Provider.CreateObject(ctx, analysis.Ref.Name, drive.KindText, entry)
		if err != nil {
			return Outcome{}, fmt.Errorf("create %q: %w", analysis.Ref.Name, err)
		}
		return Outcome{Stored: true, Kind: string(drive.KindText), Ref: ref.ID}, nil
	}
	existing, err := w.Provider.ReadFlatText(ctx, analysis.Ref)
	if err != nil {
		return Outcome{}, fmt.Errorf("read existing text: %w", err)
	}
	content := entry
	if strings.TrimSpace(existing) != "" {
		content = existing + "\n\n" + entry
	}
	if err := w.Provider.OverwriteFlatText(ctx, analysis.Ref, content); err != nil {
		return Outcome{}, fmt.Errorf("write text: %w", err)
	}
	return Outcome{Stored: true, Kind: string(drive.KindText), Ref: analysis.Ref.ID}, nil
}

func (w *Writer) writeSheet(ctx context.Context, analysis *format.Analysis, extracted *extract.Result, meta Meta) (Outcome, error) {
	enriched := extracted.Clone()
	enriched.Set("url", meta.URL)
	enriched.Set("timestamp", meta.Timestamp)

	row := w.Mapper.MapToHeaders(ctx, enriched, analysis.Sheet.Headers)
	if err := w.Provider.AppendRow(ctx, analysis.Ref, row); err != nil {
		return Outcome{}, fmt.Errorf("append row: %w", err)
	}
	return Outcome{Stored: true, Kind: string(drive.KindSheet), Ref: analysis.Ref.ID}, nil
}

func (w *Writer) writeDoc(ctx context.Context, analysis *format.Analysis, extracted *extract.Result, meta Meta) (Outcome, error) {
	entry := docEntry(analysis.Doc, extracted, meta)
	if err := w.Provider.AppendDocText(ctx, analysis.Ref, entry); err != nil {
		return Outcome{}, fmt.Errorf("append to document: %w", err)
	}
	return Outcome{Stored: true, Kind: string(drive.KindDoc), Ref: analysis.Ref.ID}, nil
}

func (w *Writer) writeText(ctx context.Context, analysis *format.Analysis, extracted *extract.Result, meta Meta) (Outcome, error) {
	return w.appendFlatText(ctx, analysis, separatedEntry(extracted, meta))
}

// docEntry shapes the entry after the document's observed structure.
// Unknown or empty documents get the delimited block so the next analysis
// recognizes the document as separated entries.
func docEntry(doc *format.Doc, extracted *extract.Result, meta Meta) string {
	switch doc.Structure {
	case format.StructureStructuredEntries:
		return labeledEntry(extracted, meta)
	case format.StructureParagraphs:
		if !doc.IsEmpty {
			return proseEntry(extracted, meta)
		}
	}
	return separatedEntry(extracted, meta)
}

const ruleEquals = "========================================"
const ruleDashes = "----------------------------------------"

// separatedEntry renders the delimited block used for documents and flat
// text files:
//
//	========================================
//	Automation: Job Tracker
//	Date: 2026-03-01T10:00:00Z
//	URL: https://example.com/posting
//	----------------------------------------
//	Company: Acme Corp
//	========================================
func separatedEntry(extracted *extract.Result, meta Meta) string {
	var b strings.Builder
	b.WriteString(ruleEquals + "\n")
	fmt.Fprintf(&b, "Automation: %s\n", meta.AutomationTitle)
	fmt.Fprintf(&b, "Date: %s\n", meta.Timestamp)
	fmt.Fprintf(&b, "URL: %s\n", meta.URL)
	b.WriteString(ruleDashes + "\n")
	for _, key := range extracted.Order {
		fmt.Fprintf(&b, "%s: %s\n", capitalize(key), extracted.Fields[key])
	}
	b.WriteString(ruleEquals)
	return b.String()
}

// labeledEntry matches documents that already hold bare "Label: value"
// lines, keeping the capture context as labeled lines too.
func labeledEntry(extracted *extract.Result, meta Meta) string {
	var b strings.Builder
	for _, key := range extracted.Order {
		fmt.Fprintf(&b, "%s: %s\n", capitalize(key), extracted.Fields[key])
	}
	fmt.Fprintf(&b, "Source: %s\n", meta.URL)
	fmt.Fprintf(&b, "Captured: %s", meta.Timestamp)
	return b.String()
}

// proseEntry renders a single free paragraph for documents written as
// running prose, skipping fields the model could not find.
func proseEntry(extracted *extract.Result, meta Meta) string {
	var parts []string
	for _, key := range extracted.Order {
		value := extracted.Fields[key]
		if value == extract.NotDetected {
			continue
		}
		parts = append(parts, fmt.Sprintf("%s: %s", capitalize(key), value))
	}
	body := strings.Join(parts, ". ")
	if body == "" {
		body = "No fields detected"
	}
	return fmt.Sprintf("%s (%s, captured %s from %s)", body, meta.AutomationTitle, meta.Timestamp, meta.URL)
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	runes := []rune(s)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}
