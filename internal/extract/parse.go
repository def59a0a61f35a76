package extract

import (
	"encoding/json"
	"errors"
	"strconv"
	"strings"
)

type pair struct {
	key   string
	value any
}

// parseObject decodes a JSON object from a model reply, preserving key
// order and raw value types. It tries the whole reply first, then the
// first balanced {...} block, since models like to wrap their JSON in
// prose.
func parseObject(raw string) ([]pair, error) {
	trimmed := strings.TrimSpace(raw)
	if pairs, err := decodeObject(trimmed); err == nil {
		return pairs, nil
	}
	block, ok := firstObjectBlock(trimmed)
	if !ok {
		return nil, errors.New("no JSON object in reply")
	}
	return decodeObject(block)
}

func decodeObject(s string) ([]pair, error) {
	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, errors.New("reply is not a JSON object")
	}
	var pairs []pair
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := keyTok.(string)
		if !ok {
			return nil, errors.New("non-string object key")
		}
		var value any
		if err := dec.Decode(&value); err != nil {
			return nil, err
		}
		pairs = append(pairs, pair{key: key, value: value})
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return pairs, nil
}

// firstObjectBlock returns the first balanced {...} substring, respecting
// string literals and escapes.
func firstObjectBlock(s string) (string, bool) {
	start := strings.Index(s, "{")
	if start < 0 {
		return "", false
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}

func stringify(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case json.Number:
		return v.String()
	case bool:
		return strconv.FormatBool(v)
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			return ""
		}
		return string(encoded)
	}
}
