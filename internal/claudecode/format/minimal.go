package format

// MinimalFormatter keeps only the fields that identify the outcome of a
// call, dropping the full step trace / result set for roughly 80%+ size
// reduction versus the full response.
type MinimalFormatter struct {
	opts FormatOptions
}

// essentialFields lists, per response type, the fields worth keeping when a
// caller just wants the outcome and not the supporting trace.
var essentialFields = map[string][]string{
	"prove":         {"valid", "confidence", "goal", "method", "reason"},
	"query":         {"success", "count", "truncated"},
	"abduce":        {"observation", "truncated"},
	"load_theory":   {"fact_count", "rule_count"},
	"add_fact":      {"fact"},
	"add_rule":      {"name"},
	"forward_chain": {"added"},
	"snapshot_save": {"path"},
	"stats":         {"prove_calls", "query_calls", "abduce_calls", "forward_chained", "fact_count", "rule_count"},
	"default":       {"fact_count", "rule_count"},
}

func (f *MinimalFormatter) Format(response any) (any, error) {
	data, err := toMap(response)
	if err != nil {
		return response, nil
	}

	fields := essentialFields[detectResponseType(data)]
	if fields == nil {
		fields = essentialFields["default"]
	}

	result := make(map[string]any)
	for _, field := range fields {
		if v, exists := data[field]; exists && !isEmpty(v) {
			result[field] = v
		}
	}

	if f.opts.MaxArrayLength > 0 {
		result = truncateArrays(result, f.opts.MaxArrayLength)
	}

	if len(result) == 0 {
		return data, nil
	}
	return result, nil
}

func (f *MinimalFormatter) Level() FormatLevel { return FormatMinimal }

// detectResponseType distinguishes the ten internal/server response shapes
// by the field unique (or nearly unique) to each, since the MCP layer hands
// this package a plain map rather than a typed response.
func detectResponseType(data map[string]any) string {
	switch {
	case has(data, "goal"):
		return "prove"
	case has(data, "observation"):
		return "abduce"
	case has(data, "prove_calls"):
		return "stats"
	case has(data, "path"):
		return "snapshot_save"
	case has(data, "added"):
		return "forward_chain"
	case has(data, "name"):
		return "add_rule"
	case has(data, "fact"):
		return "add_fact"
	case has(data, "results"), has(data, "success"):
		return "query"
	case has(data, "fact_count"):
		return "load_theory"
	default:
		return "default"
	}
}

func has(data map[string]any, key string) bool {
	_, ok := data[key]
	return ok
}
