package model

// Document is an opaque structured content payload (an email draft, a task
// list, meeting notes). The dispatcher never interprets it beyond the
// resource-type-specific edit-form codecs.
type Document map[string]any

// StringField returns the named field as a string, or "" when absent or not
// a string.
func (d Document) StringField(key string) string {
	if d == nil {
		return ""
	}
	s, _ := d[key].(string)
	return s
}

// StringSliceField returns the named field as a string slice, tolerating the
// []any shape JSON decoding produces.
func (d Document) StringSliceField(key string) []string {
	if d == nil {
		return nil
	}
	switch v := d[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
