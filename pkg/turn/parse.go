package turn

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrMalformedOutput is returned when model text holds no parseable payload.
var ErrMalformedOutput = errors.New("malformed model output")

// ExtractJSON greedily takes the substring from the first open delimiter to
// the last matching close delimiter, tolerating prose or code fences around
// the payload. Objects are tried before arrays unless the text starts with '['.
func ExtractJSON(text string) string {
	text = strings.TrimSpace(text)
	obj := between(text, '{', '}')
	arr := between(text, '[', ']')
	switch {
	case obj == "":
		if arr != "" {
			return arr
		}
		return text
	case arr != "" && strings.Index(text, "[") < strings.Index(text, "{"):
		return arr
	default:
		return obj
	}
}

// ExtractJSONArray is ExtractJSON restricted to bracket-delimited payloads.
func ExtractJSONArray(text string) string {
	text = strings.TrimSpace(text)
	if arr := between(text, '[', ']'); arr != "" {
		return arr
	}
	return text
}

func between(text string, open, close byte) string {
	start := strings.IndexByte(text, open)
	end := strings.LastIndexByte(text, close)
	if start < 0 || end <= start {
		return ""
	}
	return text[start : end+1]
}

// Parse decodes raw model text into a Response. The object span is tried
// first so that prose such as "[GM] {...}" or an array-wrapped object still
// decodes; the ExtractJSON payload is the fallback.
func Parse(text string) (*Response, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("%w: empty text", ErrMalformedOutput)
	}

	var lastErr error
	tried := make(map[string]bool, 2)
	for _, payload := range []string{between(text, '{', '}'), ExtractJSON(text)} {
		if payload == "" || tried[payload] {
			continue
		}
		tried[payload] = true

		resp, err := decodeResponse(payload)
		if err == nil {
			return resp, nil
		}
		lastErr = err
	}
	return nil, lastErr
}

func decodeResponse(payload string) (*Response, error) {
	var resp Response
	if strings.HasPrefix(payload, "[") {
		var wrapped []Response
		if err := json.Unmarshal([]byte(payload), &wrapped); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedOutput, err)
		}
		if len(wrapped) == 0 {
			return nil, fmt.Errorf("%w: empty array", ErrMalformedOutput)
		}
		resp = wrapped[0]
	} else if err := json.Unmarshal([]byte(payload), &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedOutput, err)
	}
	if strings.TrimSpace(resp.ScenarioText) == "" {
		return nil, fmt.Errorf("%w: missing scenario_text", ErrMalformedOutput)
	}
	return &resp, nil
}
