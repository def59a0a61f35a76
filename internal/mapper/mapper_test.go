package mapper

import (
	"context"
	"errors"
	"testing"

	"pagescribe/internal/extract"
	"pagescribe/internal/llm"
)

type scripted struct {
	reply string
	err   error
}

func (s *scripted) Name() string  { return "scripted" }
func (s *scripted) Model() string { return "scripted" }

func (s *scripted) Generate(_ context.Context, _ string, _ llm.Options) (string, error) {
	return s.reply, s.err
}

func result(pairs ...string) *extract.Result {
	r := extract.NewResult()
	for i := 0; i+1 < len(pairs); i += 2 {
		r.Set(pairs[i], pairs[i+1])
	}
	return r
}

func TestMapToHeadersExactWidth(t *testing.T) {
	client := &scripted{reply: `["Senior Backend Engineer", "Acme Corp", "Remote", "$150k–$180k"]`}
	headers := []string{"Title", "Company", "Location", "Salary"}
	row := New(client, nil).MapToHeaders(context.Background(), result("jobTitle", "Senior Backend Engineer"), headers)
	if len(row) != len(headers) {
		t.Fatalf("expected %d values, got %d", len(headers), len(row))
	}
	if row[0] != "Senior Backend Engineer" || row[3] != "$150k–$180k" {
		t.Fatalf("unexpected row: %v", row)
	}
}

func TestMapToHeadersPadsAndTruncates(t *testing.T) {
	headers := []string{"A", "B", "C"}

	short := &scripted{reply: `["one"]`}
	row := New(short, nil).MapToHeaders(context.Background(), result("a", "one"), headers)
	if len(row) != 3 || row[1] != extract.NotDetected || row[2] != extract.NotDetected {
		t.Fatalf("expected short reply padded with sentinel, got %v", row)
	}

	long := &scripted{reply: `["one", "two", "three", "four", "five"]`}
	row = New(long, nil).MapToHeaders(context.Background(), result("a", "one"), headers)
	if len(row) != 3 {
		t.Fatalf("expected long reply truncated to 3, got %v", row)
	}
}

func TestMapToHeadersBootstrapWithoutHeaders(t *testing.T) {
	client := &scripted{err: errors.New("should not be called")}
	row := New(client, nil).MapToHeaders(context.Background(), result("title", "Engineer", "company", "Acme"), nil)
	if len(row) != 2 || row[0] != "Engineer" || row[1] != "Acme" {
		t.Fatalf("expected values in encounter order, got %v", row)
	}
}

func TestMapToHeadersDegradesOnModelError(t *testing.T) {
	client := &scripted{err: errors.New("connection refused")}
	headers := []string{"A", "B"}
	row := New(client, nil).MapToHeaders(context.Background(), result("a", "one"), headers)
	if len(row) != 2 || row[0] != extract.NotDetected || row[1] != extract.NotDetected {
		t.Fatalf("expected sentinel row on model failure, got %v", row)
	}
}

func TestMapToHeadersDegradesOnGarbageReply(t *testing.T) {
	client := &scripted{reply: "sorry, I cannot map that"}
	headers := []string{"A", "B"}
	row := New(client, nil).MapToHeaders(context.Background(), result("a", "one"), headers)
	if len(row) != 2 || row[0] != extract.NotDetected {
		t.Fatalf("expected sentinel row on unparseable reply, got %v", row)
	}
}

func TestMapToHeadersRecoversArrayFromProse(t *testing.T) {
	client := &scripted{reply: "Here you go:\n[\"one\", \"two\"]"}
	row := New(client, nil).MapToHeaders(context.Background(), result("a", "one"), []string{"A", "B"})
	if row[0] != "one" || row[1] != "two" {
		t.Fatalf("expected recovered array, got %v", row)
	}
}
