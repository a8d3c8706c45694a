package config

// Config is the nested app configuration record
type Config map[string]any

// Merge combines base and override into a new record. Where both sides hold a
// record the merge recurses; any other override value, arrays included,
// replaces the base value. Neither input is modified.
func Merge(base, override map[string]any) map[string]any {
	out := make(map[string]any, len(base)+len(override))
	for k, v := range base {
		out[k] = deepCopy(v)
	}
	for k, ov := range override {
		orec, ok := asRecord(ov)
		if !ok {
			out[k] = deepCopy(ov)
			continue
		}
		brec, _ := asRecord(base[k])
		out[k] = Merge(brec, orec)
	}
	return out
}

// asRecord reports whether v is a nested record
func asRecord(v any) (map[string]any, bool) {
	switch r := v.(type) {
	case map[string]any:
		return r, true
	case Config:
		return r, true
	default:
		return nil, false
	}
}

// deepCopy copies records and arrays recursively; other values are returned as is
func deepCopy(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = deepCopy(e)
		}
		return out
	case Config:
		return deepCopy(map[string]any(t))
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = deepCopy(e)
		}
		return out
	default:
		return v
	}
}

// Clone returns a deep copy of c
func (c Config) Clone() Config {
	if c == nil {
		return nil
	}
	return deepCopy(map[string]any(c)).(map[string]any)
}

// Section returns a copy of the named sub-record, or an empty record
func (c Config) Section(name string) map[string]any {
	rec, ok := asRecord(c[name])
	if !ok {
		return map[string]any{}
	}
	return deepCopy(rec).(map[string]any)
}

// String returns the string value at section.key, or "" if absent or not a string
func (c Config) String(section, key string) string {
	rec, ok := asRecord(c[section])
	if !ok {
		return ""
	}
	s, _ := rec[key].(string)
	return s
}

// Int returns the numeric value at section.key, or def if absent or not a number
func (c Config) Int(section, key string, def int) int {
	rec, ok := asRecord(c[section])
	if !ok {
		return def
	}
	switch n := rec[key].(type) {
	case float64:
		return int(n)
	case int:
		return n
	case int64:
		return int(n)
	default:
		return def
	}
}
