package extract

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"pagescribe/internal/automation"
	"pagescribe/internal/llm"
)

// NotDetected is the sentinel stored for every requested field the model
// could not find. Downstream consumers never see an empty or missing field.
const NotDetected = "Not detected"

// maxContentChars bounds the content prefix sent to the model. Extraction
// gets a larger window than classification because it has to quote values.
const maxContentChars = 6000

const promptTemplate = `Extract the following fields from the web page content. Return ONLY a valid JSON object with the extracted values.

Fields to Extract: %s

Web Page Content:
%s

Return a JSON object with the field names as keys and extracted values. If a field is not found, set its value to empty string. Example format:
{"field1": "value1", "field2": "value2"}`

// Result is an extraction outcome: field name to value, with the key
// encounter order preserved for header-less spreadsheet bootstrap.
type Result struct {
	Fields map[string]string
	Order  []string
}

func NewResult() *Result {
	return &Result{Fields: make(map[string]string)}
}

func (r *Result) Set(key, value string) {
	if _, ok := r.Fields[key]; !ok {
		r.Order = append(r.Order, key)
	}
	r.Fields[key] = value
}

// Values returns the field values in encounter order.
func (r *Result) Values() []string {
	out := make([]string, 0, len(r.Order))
	for _, key := range r.Order {
		out = append(out, r.Fields[key])
	}
	return out
}

func (r *Result) Clone() *Result {
	clone := NewResult()
	for _, key := range r.Order {
		clone.Set(key, r.Fields[key])
	}
	return clone
}

// Extractor pulls named fields out of unstructured text as key/value pairs.
type Extractor struct {
	LLM llm.Client
}

func New(client llm.Client) *Extractor {
	return &Extractor{LLM: client}
}

// Extract prompts the model for a JSON object keyed by the requested field
// names. Parsing is tolerant: a direct parse first, then the first {...}
// block in the reply. Empty values and requested fields the model omitted
// are rewritten to the NotDetected sentinel.
func (e *Extractor) Extract(ctx context.Context, content, fieldSpec string) (*Result, error) {
	prompt := fmt.Sprintf(promptTemplate, fieldSpec, truncate(content, maxContentChars))
	resp, err := e.LLM.Generate(ctx, prompt, llm.Options{Temperature: 0.2, MaxTokens: 500})
	if err != nil {
		return nil, err
	}
	pairs, err := parseObject(resp)
	if err != nil {
		return nil, fmt.Errorf("unparseable extraction reply: %w", err)
	}
	if err := validatePayload(fieldSpec, pairs); err != nil {
		return nil, err
	}

	result := NewResult()
	for _, kv := range pairs {
		value := strings.TrimSpace(stringify(kv.value))
		if value == "" {
			value = NotDetected
		}
		result.Set(kv.key, value)
	}
	for _, name := range automation.SplitFields(fieldSpec) {
		if !hasField(result, name) {
			result.Set(name, NotDetected)
		}
	}
	if len(result.Order) == 0 {
		return nil, errors.New("extraction produced no fields")
	}
	return result, nil
}

// hasField matches a requested name against extracted keys ignoring case,
// spacing and punctuation, so "job title" counts as covered by "jobTitle".
func hasField(r *Result, name string) bool {
	want := canonical(name)
	for key := range r.Fields {
		if canonical(key) == want {
			return true
		}
	}
	return false
}

func canonical(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// truncate cuts at the limit, backing up to a rune boundary so the
// prompt never carries a split UTF-8 sequence.
func truncate(text string, limit int) string {
	if len(text) <= limit {
		return text
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return text[:cut]
}
