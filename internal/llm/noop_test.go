package llm

import (
	"context"
	"strings"
	"testing"
)

func TestNoopAnswersClassificationPrompt(t *testing.T) {
	client := NewNoop()
	out, err := client.Generate(context.Background(), `Respond with ONLY "YES" if this page contains information relevant to the automation intent, or "NO" if it does not.`, Options{})
	if err != nil {
		t.Fatalf("generate error: %v", err)
	}
	if !strings.HasPrefix(out, "YES") {
		t.Fatalf("expected YES reply, got %q", out)
	}
}

func TestNoopAnswersExtractionPrompt(t *testing.T) {
	client := NewNoop()
	out, err := client.Generate(context.Background(), "Return ONLY a valid JSON object with the extracted values.", Options{})
	if err != nil {
		t.Fatalf("generate error: %v", err)
	}
	if out != "{}" {
		t.Fatalf("expected empty object reply, got %q", out)
	}
}
