package generate

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrNoObject means the model reply carried no complete JSON object.
var ErrNoObject = errors.New("no JSON object found in reply")

// extractObject returns the first balanced {...} substring of s. The models
// are instructed to answer with an inline JSON object, but they wrap it in
// prose often enough that a plain Unmarshal of the whole reply cannot work.
// String literals and escapes are honored so braces inside values do not
// unbalance the scan.
func extractObject(s string) (string, error) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", ErrNoObject
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
				return s[start : i+1], nil
			}
		}
	}
	return "", ErrNoObject
}

// decodeObject extracts and strictly unmarshals the reply's JSON object into
// v. Any shape mismatch is reported as an error, never a partial value.
func decodeObject(reply string, v any) error {
	raw, err := extractObject(reply)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return fmt.Errorf("decode reply object: %w", err)
	}
	return nil
}
