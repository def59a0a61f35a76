package mapper

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"pagescribe/internal/extract"
	"pagescribe/internal/llm"
)

const promptTemplate = `You are a data mapping assistant. Map the extracted data to the sheet column headers.

Sheet Column Headers: %s

Extracted Data: %s

For each column header, find the most relevant value from the extracted data. If no relevant value exists, use "Not detected".

Return a JSON array of values in the EXACT order of the sheet headers. Example:
["value1", "value2", "Not detected", "value3"]`

// Mapper reconciles extracted key/value pairs against an existing header
// row, producing a positional row.
type Mapper struct {
	LLM llm.Client
	Log *zap.Logger
}

func New(client llm.Client, logger *zap.Logger) *Mapper {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Mapper{LLM: client, Log: logger}
}

// MapToHeaders returns a row with exactly one value per header, in header
// order. With no headers it returns the extracted values in encounter
// order (bootstrap case for sheets without a header row).
//
// This is the one place that soft-degrades instead of failing: a row of
// sentinels is still useful for a human to fix, while aborting the write
// loses the row entirely. Mapping failures are logged, never returned.
func (m *Mapper) MapToHeaders(ctx context.Context, extracted *extract.Result, headers []string) []string {
	if len(headers) == 0 {
		return extracted.Values()
	}

	headersJSON, _ := json.Marshal(headers)
	dataJSON, _ := json.Marshal(extracted.Fields)
	prompt := fmt.Sprintf(promptTemplate, headersJSON, dataJSON)

	resp, err := m.LLM.Generate(ctx, prompt, llm.Options{Temperature: 0.1, MaxTokens: 200})
	if err != nil {
		m.Log.Warn("header mapping degraded to sentinel row", zap.Error(err))
		return sentinelRow(len(headers))
	}
	row, err := parseArray(resp)
	if err != nil {
		m.Log.Warn("header mapping reply unparseable, degrading to sentinel row", zap.Error(err))
		return sentinelRow(len(headers))
	}
	return fitToHeaders(row, len(headers))
}

// fitToHeaders forces the row to exactly n values: extras are dropped,
// gaps and empty cells become the sentinel.
func fitToHeaders(row []string, n int) []string {
	out := make([]string, n)
	for i := 0; i < n; i++ {
		if i < len(row) && strings.TrimSpace(row[i]) != "" {
			out[i] = row[i]
		} else {
			out[i] = extract.NotDetected
		}
	}
	return out
}

func sentinelRow(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = extract.NotDetected
	}
	return out
}

// parseArray decodes a JSON string array from a model reply, falling back
// to the first [...] block when the reply wraps it in prose.
func parseArray(raw string) ([]string, error) {
	trimmed := strings.TrimSpace(raw)
	if row, err := decodeArray(trimmed); err == nil {
		return row, nil
	}
	start := strings.Index(trimmed, "[")
	end := strings.LastIndex(trimmed, "]")
	if start < 0 || end <= start {
		return nil, errors.New("no JSON array in reply")
	}
	return decodeArray(trimmed[start : end+1])
}

func decodeArray(s string) ([]string, error) {
	var values []any
	if err := json.Unmarshal([]byte(s), &values); err != nil {
		return nil, err
	}
	out := make([]string, 0, len(values))
	for _, value := range values {
		switch v := value.(type) {
		case string:
			out = append(out, v)
		case nil:
			out = append(out, "")
		default:
			out = append(out, fmt.Sprintf("%v", v))
		}
	}
	return out, nil
}
