package actions

import "github.com/spf13/cast"

func stringParam(m map[string]any, key, defaultVal string) string {
	v, ok := m[key]
	if !ok || v == nil {
		return defaultVal
	}
	s, err := cast.ToStringE(v)
	if err != nil {
		return defaultVal
	}
	return s
}

func mapParam(m map[string]any, key string) map[string]any {
	v, ok := m[key]
	if !ok || v == nil {
		return nil
	}
	out, err := cast.ToStringMapE(v)
	if err != nil {
		return nil
	}
	return out
}
