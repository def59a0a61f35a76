// Package summarize condenses a read article into a note-sized summary
// and the delimited block it is stored as.
package summarize

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"pagescribe/internal/llm"
)

// maxContentChars bounds the article text sent to the model. Summaries
// get the widest window of the stages since they have to cover the whole
// piece.
const maxContentChars = 8000

const promptTemplate = `Please provide a concise summary of the following article content. The user has read %d%% of this article.

Title: %s
URL: %s
Content: %s

Provide a clear, structured summary that captures the key points and main ideas.`

// Summarizer produces article summaries through the shared model client.
type Summarizer struct {
	LLM llm.Client
}

func New(client llm.Client) *Summarizer {
	return &Summarizer{LLM: client}
}

// Summarize asks the model for a summary of the article, noting how far
// the reader got. The model's reply is returned trimmed.
func (s *Summarizer) Summarize(ctx context.Context, title, url, content string, readPercent int) (string, error) {
	prompt := fmt.Sprintf(promptTemplate, readPercent, title, url, truncate(content, maxContentChars))
	resp, err := s.LLM.Generate(ctx, prompt, llm.Options{Temperature: 0.7, MaxTokens: 1000})
	if err != nil {
		return "", err
	}
	summary := strings.TrimSpace(resp)
	if summary == "" {
		return "", fmt.Errorf("model returned an empty summary")
	}
	return summary, nil
}

const rule = "========================================"

// Entry renders the stored form of a summary:
//
//	========================================
//	Date: 2026-03-01T10:00:00Z
//	Title: Backend Engineer
//	URL: https://example.com/post
//	Read: 80%
//
//	Summary:
//	...
//	========================================
func Entry(title, url, timestamp string, readPercent int, summary string) string {
	var b strings.Builder
	b.WriteString(rule + "\n")
	fmt.Fprintf(&b, "Date: %s\n", timestamp)
	fmt.Fprintf(&b, "Title: %s\n", title)
	fmt.Fprintf(&b, "URL: %s\n", url)
	fmt.Fprintf(&b, "Read: %d%%\n", readPercent)
	b.WriteString("\nSummary:\n")
	b.WriteString(summary + "\n")
	b.WriteString(rule)
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
