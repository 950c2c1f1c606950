package corpus

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/stigtools/stig-rag/internal/core/domain"
)

// Codec decodes the corpus payload shapes produced by STIG tooling:
//
//   - a list of {"rhel_version": ..., "data": {"Benchmark": ...}} wrappers
//   - a single {"Benchmark": ...} object
//   - a plain mapping of control ID to control fields
//   - a list of control records carrying an "id" field
//
// Records without an ID are skipped silently; a payload that fits none of the
// shapes is a format error. Decoding preserves document order so reloads are
// reproducible.
type Codec struct{}

func NewCodec() *Codec {
	return &Codec{}
}

func (c *Codec) Decode(raw []byte) ([]domain.Control, error) {
	var top any
	if err := json.Unmarshal(raw, &top); err != nil {
		return nil, fmt.Errorf("parse corpus json: %w", err)
	}

	switch data := top.(type) {
	case []any:
		if looksLikeBenchmarkList(data) {
			return decodeBenchmarkList(data), nil
		}
		return decodeRecordList(data), nil
	case map[string]any:
		if _, ok := data["Benchmark"]; ok {
			return decodeBenchmark(data["Benchmark"], "unknown"), nil
		}
		return decodeControlMapping(raw)
	default:
		return nil, fmt.Errorf("unsupported top-level type %T", top)
	}
}

func looksLikeBenchmarkList(items []any) bool {
	for _, item := range items {
		if entry, ok := item.(map[string]any); ok {
			if _, ok := entry["data"]; ok {
				return true
			}
		}
	}
	return false
}

func decodeBenchmarkList(items []any) []domain.Control {
	var controls []domain.Control
	for _, item := range items {
		entry, ok := item.(map[string]any)
		if !ok {
			continue
		}
		payload, ok := entry["data"].(map[string]any)
		if !ok {
			continue
		}
		versionTag := stringField(entry, "rhel_version")
		if versionTag == "" {
			versionTag = "unknown"
		}
		controls = append(controls, decodeBenchmark(payload["Benchmark"], versionTag)...)
	}
	return controls
}

func decodeBenchmark(benchmark any, versionTag string) []domain.Control {
	root, ok := benchmark.(map[string]any)
	if !ok {
		return nil
	}

	var controls []domain.Control
	for _, group := range asList(root["Group"]) {
		groupMap, ok := group.(map[string]any)
		if !ok {
			continue
		}
		for _, rule := range asList(groupMap["Rule"]) {
			ruleMap, ok := rule.(map[string]any)
			if !ok {
				continue
			}
			control := decodeRule(ruleMap, versionTag)
			if control.ID != "" {
				controls = append(controls, control)
			}
		}
	}
	return controls
}

func decodeRule(rule map[string]any, versionTag string) domain.Control {
	control := domain.Control{
		ID:          stringField(rule, "@id"),
		Title:       textField(rule["title"]),
		Description: textField(rule["description"]),
		Severity:    domain.NormalizeSeverity(stringField(rule, "@severity")),
		VersionTag:  versionTag,
	}

	if check, ok := rule["check"].(map[string]any); ok {
		control.Check = strings.TrimSpace(textField(check["check-content"]))
	}
	control.Fix = strings.TrimSpace(textField(rule["fixtext"]))
	return control
}

func decodeRecordList(items []any) []domain.Control {
	var controls []domain.Control
	for _, item := range items {
		record, ok := item.(map[string]any)
		if !ok {
			continue
		}
		control := decodeRecord(stringField(record, "id"), record)
		if control.ID != "" {
			controls = append(controls, control)
		}
	}
	return controls
}

// decodeControlMapping walks the top-level object with a token decoder so the
// document's key order survives into corpus insertion order.
func decodeControlMapping(raw []byte) ([]domain.Control, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("parse corpus object: %w", err)
	}

	var controls []domain.Control
	for dec.More() {
		keyToken, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("parse corpus key: %w", err)
		}
		id, _ := keyToken.(string)

		var fields map[string]any
		if err := dec.Decode(&fields); err != nil {
			return nil, fmt.Errorf("parse control %q: %w", id, err)
		}
		if id == "" {
			continue
		}
		controls = append(controls, decodeRecord(id, fields))
	}
	return controls, nil
}

func decodeRecord(id string, fields map[string]any) domain.Control {
	return domain.Control{
		ID:          id,
		Title:       stringField(fields, "title"),
		Description: stringField(fields, "description"),
		Check:       stringField(fields, "check"),
		Fix:         stringField(fields, "fix"),
		Severity:    domain.NormalizeSeverity(stringField(fields, "severity")),
		VersionTag:  stringField(fields, "rhel_version"),
	}
}

func asList(v any) []any {
	switch value := v.(type) {
	case []any:
		return value
	case map[string]any:
		return []any{value}
	default:
		return nil
	}
}

// textField unwraps the {"#text": ...} wrapper XML-to-JSON converters emit.
func textField(v any) string {
	switch value := v.(type) {
	case string:
		return value
	case map[string]any:
		if text, ok := value["#text"].(string); ok {
			return text
		}
		return ""
	default:
		return ""
	}
}

func stringField(fields map[string]any, key string) string {
	value, _ := fields[key].(string)
	return value
}
