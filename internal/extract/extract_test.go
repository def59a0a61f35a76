package extract

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"pagescribe/internal/llm"
)

type scripted struct {
	reply      string
	err        error
	lastPrompt string
}

func (s *scripted) Name() string  { return "scripted" }
func (s *scripted) Model() string { return "scripted" }

func (s *scripted) Generate(_ context.Context, prompt string, _ llm.Options) (string, error) {
	s.lastPrompt = prompt
	return s.reply, s.err
}

func TestExtractParsesDirectJSON(t *testing.T) {
	client := &scripted{reply: `{"jobTitle": "Senior Backend Engineer", "company": "Acme Corp", "location": "Remote", "salary": "$150k–$180k"}`}
	result, err := New(client).Extract(context.Background(), "posting text", "job title, company, location, salary")
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if result.Fields["jobTitle"] != "Senior Backend Engineer" {
		t.Fatalf("unexpected jobTitle: %q", result.Fields["jobTitle"])
	}
	if result.Fields["salary"] != "$150k–$180k" {
		t.Fatalf("unexpected salary: %q", result.Fields["salary"])
	}
	if len(result.Order) != 4 {
		t.Fatalf("expected 4 fields in order, got %v", result.Order)
	}
}

func TestExtractRecoversObjectFromProse(t *testing.T) {
	client := &scripted{reply: "Here is the JSON you asked for:\n{\"company\": \"Acme Corp\"}\nLet me know if you need more."}
	result, err := New(client).Extract(context.Background(), "text", "company")
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if result.Fields["company"] != "Acme Corp" {
		t.Fatalf("expected recovered value, got %q", result.Fields["company"])
	}
}

func TestExtractRewritesEmptyValuesToSentinel(t *testing.T) {
	client := &scripted{reply: `{"company": "Acme Corp", "salary": "", "location": "  "}`}
	result, err := New(client).Extract(context.Background(), "text", "company, salary, location")
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if result.Fields["salary"] != NotDetected {
		t.Fatalf("expected sentinel for empty salary, got %q", result.Fields["salary"])
	}
	if result.Fields["location"] != NotDetected {
		t.Fatalf("expected sentinel for blank location, got %q", result.Fields["location"])
	}
}

func TestExtractBackfillsOmittedRequestedFields(t *testing.T) {
	client := &scripted{reply: `{"jobTitle": "Engineer"}`}
	result, err := New(client).Extract(context.Background(), "text", "job title, company, salary")
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	// "job title" is covered by the model's "jobTitle" key; the others are not.
	if _, ok := result.Fields["job title"]; ok {
		t.Fatalf("expected requested name covered by jobTitle to not be duplicated")
	}
	if result.Fields["company"] != NotDetected {
		t.Fatalf("expected sentinel backfill for company, got %q", result.Fields["company"])
	}
	if result.Fields["salary"] != NotDetected {
		t.Fatalf("expected sentinel backfill for salary, got %q", result.Fields["salary"])
	}
}

func TestExtractRejectsNestedValues(t *testing.T) {
	client := &scripted{reply: `{"company": {"name": "Acme Corp"}, "jobTitle": "Engineer"}`}
	if _, err := New(client).Extract(context.Background(), "text", "company, job title"); err == nil {
		t.Fatalf("expected error for nested object value")
	}
}

func TestExtractRejectsArrayValues(t *testing.T) {
	client := &scripted{reply: `{"tags": ["go", "backend"]}`}
	if _, err := New(client).Extract(context.Background(), "text", "tags"); err == nil {
		t.Fatalf("expected error for array value")
	}
}

func TestExtractTruncatesOnRuneBoundary(t *testing.T) {
	// Place a two-byte rune straddling the byte limit, so a naive byte
	// slice would split it.
	content := strings.Repeat("a", maxContentChars-1) + "é" + "OVERFLOW"
	client := &scripted{reply: `{"company": "Acme Corp"}`}
	if _, err := New(client).Extract(context.Background(), content, "company"); err != nil {
		t.Fatalf("extract: %v", err)
	}
	if !utf8.ValidString(client.lastPrompt) {
		t.Fatalf("prompt carries an invalid UTF-8 sequence")
	}
	if strings.Contains(client.lastPrompt, "OVERFLOW") {
		t.Fatalf("expected content past the limit to be dropped")
	}
}

func TestExtractFailsOnGarbageReply(t *testing.T) {
	client := &scripted{reply: "I could not find any structured data on that page."}
	if _, err := New(client).Extract(context.Background(), "text", "company"); err == nil {
		t.Fatalf("expected error for reply with no JSON object")
	}
}

func TestExtractPropagatesModelError(t *testing.T) {
	client := &scripted{err: errors.New("dial tcp: connection refused")}
	if _, err := New(client).Extract(context.Background(), "text", "company"); err == nil {
		t.Fatalf("expected model error to propagate")
	}
}

func TestExtractStringifiesNonStringValues(t *testing.T) {
	client := &scripted{reply: `{"price": 199.99, "inStock": true}`}
	result, err := New(client).Extract(context.Background(), "text", "price, in stock")
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if result.Fields["price"] != "199.99" {
		t.Fatalf("expected numeric value as string, got %q", result.Fields["price"])
	}
	if result.Fields["inStock"] != "true" {
		t.Fatalf("expected boolean value as string, got %q", result.Fields["inStock"])
	}
}

func TestResultValuesFollowEncounterOrder(t *testing.T) {
	result := NewResult()
	result.Set("b", "2")
	result.Set("a", "1")
	result.Set("b", "3")
	values := result.Values()
	if len(values) != 2 || values[0] != "3" || values[1] != "1" {
		t.Fatalf("unexpected ordered values: %v", values)
	}
}
