package format

// CompactFormatter drops empty fields and caps long arrays (proof steps,
// query results, abduction explanations) for roughly 40-60% size reduction
// versus the full response.
type CompactFormatter struct {
	opts FormatOptions
}

func (f *CompactFormatter) Format(response any) (any, error) {
	data, err := toMap(response)
	if err != nil {
		return response, nil
	}

	if f.opts.MaxArrayLength > 0 {
		data = truncateArrays(data, f.opts.MaxArrayLength)
	}
	if f.opts.OmitEmpty {
		data = cleanMap(data)
	}
	return data, nil
}

func (f *CompactFormatter) Level() FormatLevel { return FormatCompact }
