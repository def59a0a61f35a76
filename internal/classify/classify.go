package classify

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"pagescribe/internal/llm"
)

// maxContentChars bounds the content prefix sent to the model, to bound
// cost and latency.
const maxContentChars = 4000

const promptTemplate = `You are an intent classifier. Determine if the following web page content is relevant to the user's automation intent.

Automation Intent: %q
Fields to Extract: %q

Web Page Content:
%s

Respond with ONLY "YES" if this page contains information relevant to the automation intent, or "NO" if it does not.`

// Classifier decides binary relevance of captured content to an
// automation's intent.
type Classifier struct {
	LLM llm.Client
}

func New(client llm.Client) *Classifier {
	return &Classifier{LLM: client}
}

// Classify returns true only when the model's trimmed, upper-cased reply
// starts with "YES". Any other reply, including a malformed or empty one,
// means not relevant. Model call failures propagate to the caller.
func (c *Classifier) Classify(ctx context.Context, content, intentTitle, fieldSpec string) (bool, error) {
	prompt := fmt.Sprintf(promptTemplate, intentTitle, fieldSpec, truncate(content, maxContentChars))
	resp, err := c.LLM.Generate(ctx, prompt, llm.Options{Temperature: 0.1, MaxTokens: 10})
	if err != nil {
		return false, err
	}
	answer := strings.ToUpper(strings.TrimSpace(resp))
	return strings.HasPrefix(answer, "YES"), nil
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
