package format

import (
	"encoding/json"
	"reflect"
)

// ResponseFormatter transforms one of the ten ProveResponse/QueryResponse/
// AbduceResponse/.../StatsResponse values (see internal/server) before it is
// marshaled back to the MCP client.
type ResponseFormatter interface {
	Format(response any) (any, error)
	Level() FormatLevel
}

// NewFormatter builds the ResponseFormatter for level.
func NewFormatter(level FormatLevel, opts FormatOptions) ResponseFormatter {
	opts.Level = level
	switch level {
	case FormatCompact:
		return &CompactFormatter{opts: opts}
	case FormatMinimal:
		return &MinimalFormatter{opts: opts}
	default:
		return &FullFormatter{opts: opts}
	}
}

// FullFormatter returns the response unchanged, except for optional empty
// field removal (a prove response with no Reason, say).
type FullFormatter struct {
	opts FormatOptions
}

func (f *FullFormatter) Format(response any) (any, error) {
	if f.opts.OmitEmpty {
		return removeEmptyFields(response)
	}
	return response, nil
}

func (f *FullFormatter) Level() FormatLevel { return FormatFull }

func removeEmptyFields(response any) (any, error) {
	data, err := toMap(response)
	if err != nil {
		return response, nil
	}
	return cleanMap(data), nil
}

// toMap renders a response struct as a map via its JSON tags, so the rest of
// this package can inspect/trim fields by name without a type switch over
// all ten response structs.
func toMap(v any) (map[string]any, error) {
	if m, ok := v.(map[string]any); ok {
		return m, nil
	}
	bytes, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var result map[string]any
	if err := json.Unmarshal(bytes, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// cleanMap recursively drops nil/empty values.
func cleanMap(m map[string]any) map[string]any {
	result := make(map[string]any)
	for k, v := range m {
		if v == nil || isEmpty(v) {
			continue
		}
		if nested, ok := v.(map[string]any); ok {
			if cleaned := cleanMap(nested); len(cleaned) > 0 {
				result[k] = cleaned
			}
			continue
		}
		if arr, ok := v.([]any); ok {
			if cleaned := cleanArray(arr); len(cleaned) > 0 {
				result[k] = cleaned
			}
			continue
		}
		result[k] = v
	}
	return result
}

func cleanArray(arr []any) []any {
	result := make([]any, 0, len(arr))
	for _, v := range arr {
		if v == nil || isEmpty(v) {
			continue
		}
		if nested, ok := v.(map[string]any); ok {
			if cleaned := cleanMap(nested); len(cleaned) > 0 {
				result = append(result, cleaned)
			}
			continue
		}
		result = append(result, v)
	}
	return result
}

func isEmpty(v any) bool {
	if v == nil {
		return true
	}
	val := reflect.ValueOf(v)
	switch val.Kind() {
	case reflect.String:
		return val.Len() == 0
	case reflect.Slice, reflect.Array, reflect.Map:
		return val.Len() == 0
	case reflect.Ptr, reflect.Interface:
		return val.IsNil()
	}
	return false
}

// truncateArrays caps every array field in data (Steps, Results,
// Explanations, ...) to maxLen, recursing into nested maps.
func truncateArrays(data map[string]any, maxLen int) map[string]any {
	if maxLen <= 0 {
		return data
	}
	result := make(map[string]any)
	for k, v := range data {
		if arr, ok := v.([]any); ok && len(arr) > maxLen {
			result[k] = arr[:maxLen]
			continue
		}
		if nested, ok := v.(map[string]any); ok {
			result[k] = truncateArrays(nested, maxLen)
			continue
		}
		result[k] = v
	}
	return result
}
