package signing

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

// CanonicalJSON serializes v with a deterministic field ordering: object keys
// are emitted sorted, recursively, with no insignificant whitespace. Two
// structurally equal values always produce identical bytes, which is required
// for signature reproducibility.
func CanonicalJSON(v any) ([]byte, error) {
	// Round-trip through encoding/json first so struct tags, omitempty, and
	// custom marshalers are honored before key sorting. json.Number keeps
	// numeric literals exactly as written.
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("signing: marshal for canonicalization: %w", err)
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var generic any
	if err := dec.Decode(&generic); err != nil {
		return nil, fmt.Errorf("signing: decode for canonicalization: %w", err)
	}

	var buf bytes.Buffer
	if err := writeCanonical(&buf, generic); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeCanonical(buf *bytes.Buffer, v any) error {
	switch val := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		buf.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			keyJSON, err := json.Marshal(k)
			if err != nil {
				return fmt.Errorf("signing: marshal key %q: %w", k, err)
			}
			buf.Write(keyJSON)
			buf.WriteByte(':')
			if err := writeCanonical(buf, val[k]); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
		return nil

	case []any:
		buf.WriteByte('[')
		for i, elem := range val {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeCanonical(buf, elem); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
		return nil

	case json.Number:
		buf.WriteString(val.String())
		return nil

	default:
		leaf, err := json.Marshal(val)
		if err != nil {
			return fmt.Errorf("signing: marshal leaf: %w", err)
		}
		buf.Write(leaf)
		return nil
	}
}
