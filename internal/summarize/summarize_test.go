package summarize

import (
	"context"
	"errors"
	"strings"
	"testing"

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

func TestSummarizeTrimsReply(t *testing.T) {
	client := &scripted{reply: "\n  The article covers three hiring trends.  \n"}
	summary, err := New(client).Summarize(context.Background(), "Hiring Trends", "https://example.com/a", "body text", 80)
	if err != nil {
		t.Fatalf("summarize: %v", err)
	}
	if summary != "The article covers three hiring trends." {
		t.Fatalf("unexpected summary %q", summary)
	}
	if !strings.Contains(client.lastPrompt, "read 80% of this article") {
		t.Fatalf("prompt missing read percentage:\n%s", client.lastPrompt)
	}
}

func TestSummarizeRejectsEmptyReply(t *testing.T) {
	client := &scripted{reply: "   "}
	if _, err := New(client).Summarize(context.Background(), "t", "u", "c", 10); err == nil {
		t.Fatalf("expected error for empty model reply")
	}
}

func TestSummarizePropagatesModelError(t *testing.T) {
	client := &scripted{err: errors.New("connection refused")}
	if _, err := New(client).Summarize(context.Background(), "t", "u", "c", 10); err == nil {
		t.Fatalf("expected model error to propagate")
	}
}

func TestEntryLayout(t *testing.T) {
	entry := Entry("Hiring Trends", "https://example.com/a", "2026-03-01T10:00:00Z", 80, "Key points here.")
	for _, want := range []string{
		"Date: 2026-03-01T10:00:00Z",
		"Title: Hiring Trends",
		"URL: https://example.com/a",
		"Read: 80%",
		"Summary:\nKey points here.",
	} {
		if !strings.Contains(entry, want) {
			t.Fatalf("entry missing %q:\n%s", want, entry)
		}
	}
	if !strings.HasPrefix(entry, "====") || !strings.HasSuffix(entry, "====") {
		t.Fatalf("entry not delimited:\n%s", entry)
	}
}
