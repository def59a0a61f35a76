// Package format inspects a destination object and reports the shape its
// existing content follows, so new entries can be written consistently.
package format

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"pagescribe/internal/automation"
	"pagescribe/internal/drive"
)

// ColumnType classifies the values observed in one spreadsheet column.
type ColumnType string

const (
	ColumnNumber ColumnType = "number"
	ColumnDate   ColumnType = "date"
	ColumnURL    ColumnType = "url"
	ColumnText   ColumnType = "text"
)

// DocStyle describes how prose in a document is laid out.
type DocStyle string

const (
	StyleSingleParagraph DocStyle = "single_paragraph"
	StyleMultiParagraph  DocStyle = "multi_paragraph"
	StyleBulletPoints    DocStyle = "bullet_points"
	StyleHeadingBased    DocStyle = "heading_based"
	StyleUnknown         DocStyle = "unknown"
)

// DocStructure describes how individual entries are delimited.
type DocStructure string

const (
	StructureSeparatedEntries  DocStructure = "separated_entries"
	StructureStructuredEntries DocStructure = "structured_entries"
	StructureParagraphs        DocStructure = "paragraph_format"
	StructureEmpty             DocStructure = "empty"
)

const maxSamples = 3

// Sheet is the observed shape of a spreadsheet destination.
type Sheet struct {
	Headers     []string
	ColumnCount int
	RowCount    int
	ColumnTypes map[string]ColumnType
	SampleRows  [][]string
	IsEmpty     bool
}

// Doc is the observed shape of a document destination.
type Doc struct {
	Style          DocStyle
	Structure      DocStructure
	AvgEntryLength int
	HasBullets     bool
	HasHeadings    bool
	SampleEntries  []string
	IsEmpty        bool
}

// Text is the observed shape of a flat text destination.
type Text struct {
	IsEmpty bool
}

// Analysis carries the destination's kind, reference, and exactly one of
// the shape reports. Resolved is false when the destination was named but
// no such object exists yet; the writer creates it on first write.
type Analysis struct {
	Kind     drive.Kind
	Ref      drive.ObjectRef
	Resolved bool

	Sheet *Sheet
	Doc   *Doc
	Text  *Text
}

// Analyzer reads a destination through the storage provider and reports
// its current format. Analysis is read-only and repeatable: analyzing an
// unchanged destination twice yields the same report.
type Analyzer struct {
	Provider drive.Provider
}

func NewAnalyzer(provider drive.Provider) *Analyzer {
	return &Analyzer{Provider: provider}
}

// Analyze resolves the destination and inspects its content. An explicit
// ID that resolves to nothing is an error; an unresolved name means the
// object does not exist yet and comes back as an empty flat-text target.
func (a *Analyzer) Analyze(ctx context.Context, dest automation.Destination) (*Analysis, error) {
	if dest.Empty() {
		return nil, errors.New("destination has neither id nor name")
	}

	var ref drive.ObjectRef
	var err error
	if dest.ID != "" {
		ref, err = a.Provider.Lookup(ctx, dest.ID)
		if err != nil {
			return nil, fmt.Errorf("look up destination %q: %w", dest.ID, err)
		}
	} else {
		ref, err = a.Provider.Resolve(ctx, dest.Name)
		if errors.Is(err, drive.ErrNotFound) {
			return &Analysis{
				Kind:     drive.KindText,
				Ref:      drive.ObjectRef{Name: dest.Name, Kind: drive.KindText},
				Resolved: false,
				Text:     &Text{IsEmpty: true},
			}, nil
		}
		if err != nil {
			return nil, fmt.Errorf("resolve destination %q: %w", dest.Name, err)
		}
	}

	analysis := &Analysis{Kind: ref.Kind, Ref: ref, Resolved: true}
	switch ref.Kind {
	case drive.KindSheet:
		analysis.Sheet, err = a.analyzeSheet(ctx, ref)
	case drive.KindDoc:
		analysis.Doc, err = a.analyzeDoc(ctx, ref)
	case drive.KindText:
		analysis.Text, err = a.analyzeText(ctx, ref)
	default:
		err = fmt.Errorf("unsupported destination kind %q", ref.Kind)
	}
	if err != nil {
		return nil, err
	}
	return analysis, nil
}

func (a *Analyzer) analyzeSheet(ctx context.Context, ref drive.ObjectRef) (*Sheet, error) {
	rows, err := a.Provider.ReadGrid(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("read grid: %w", err)
	}
	sheet := &Sheet{
		RowCount:    len(rows),
		ColumnTypes: map[string]ColumnType{},
		IsEmpty:     len(rows) <= 1,
	}
	if len(rows) == 0 {
		return sheet, nil
	}
	sheet.Headers = rows[0]
	sheet.ColumnCount = len(rows[0])

	data := rows[1:]
	for i := 0; i < len(data) && i < maxSamples; i++ {
		sheet.SampleRows = append(sheet.SampleRows, data[i])
	}
	for col, header := range sheet.Headers {
		sheet.ColumnTypes[header] = classifyColumn(data, col)
	}
	return sheet, nil
}

var isoDatePrefix = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}`)

// classifyColumn picks the narrowest type all observed values share.
func classifyColumn(rows [][]string, col int) ColumnType {
	allNumber, allDate, allURL := true, true, true
	seen := 0
	for _, row := range rows {
		if col >= len(row) || strings.TrimSpace(row[col]) == "" {
			continue
		}
		value := strings.TrimSpace(row[col])
		seen++
		if _, err := strconv.ParseFloat(value, 64); err != nil {
			allNumber = false
		}
		if !isoDatePrefix.MatchString(value) {
			allDate = false
		}
		if !strings.HasPrefix(value, "http://") && !strings.HasPrefix(value, "https://") {
			allURL = false
		}
	}
	if seen == 0 {
		return ColumnText
	}
	switch {
	case allNumber:
		return ColumnNumber
	case allDate:
		return ColumnDate
	case allURL:
		return ColumnURL
	default:
		return ColumnText
	}
}

var (
	ruleLine    = regexp.MustCompile(`^[=\-]{4,}$`)
	labeledLine = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9 ]{0,40}:\s`)
	dateToken   = regexp.MustCompile(`\d{4}-\d{2}-\d{2}|\d{1,2}/\d{1,2}/\d{2,4}`)
)

func (a *Analyzer) analyzeDoc(ctx context.Context, ref drive.ObjectRef) (*Doc, error) {
	paragraphs, err := a.Provider.ReadDocParagraphs(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("read document: %w", err)
	}

	doc := &Doc{Style: StyleUnknown, Structure: StructureEmpty, IsEmpty: true}

	var (
		hasRule, hasDate, hasLabeled bool
		multiline                    int
		nonEmpty                     int
		totalLen                     int
	)
	for _, p := range paragraphs {
		text := strings.TrimSpace(p.Text)
		if text == "" {
			continue
		}
		nonEmpty++
		totalLen += len(text)
		if len(text) > 10 {
			doc.IsEmpty = false
		}
		if p.Bullet {
			doc.HasBullets = true
		}
		if p.Heading {
			doc.HasHeadings = true
		}
		if strings.Contains(text, "\n") {
			multiline++
		}
		for _, line := range strings.Split(text, "\n") {
			line = strings.TrimSpace(line)
			if ruleLine.MatchString(line) {
				hasRule = true
			}
			if labeledLine.MatchString(line) {
				hasLabeled = true
			}
		}
		if dateToken.MatchString(text) {
			hasDate = true
		}
		if len(doc.SampleEntries) < maxSamples {
			doc.SampleEntries = append(doc.SampleEntries, text)
		}
	}

	if doc.IsEmpty {
		return doc, nil
	}
	doc.AvgEntryLength = totalLen / nonEmpty

	switch {
	case hasRule && hasDate:
		doc.Structure = StructureSeparatedEntries
	case hasLabeled:
		doc.Structure = StructureStructuredEntries
	default:
		doc.Structure = StructureParagraphs
	}

	switch {
	case doc.HasHeadings:
		doc.Style = StyleHeadingBased
	case doc.HasBullets:
		doc.Style = StyleBulletPoints
	case multiline*2 > nonEmpty:
		doc.Style = StyleMultiParagraph
	default:
		doc.Style = StyleSingleParagraph
	}
	return doc, nil
}

func (a *Analyzer) analyzeText(ctx context.Context, ref drive.ObjectRef) (*Text, error) {
	content, err := a.Provider.ReadFlatText(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("read text: %w", err)
	}
	return &Text{IsEmpty: strings.TrimSpace(content) == ""}, nil
}
