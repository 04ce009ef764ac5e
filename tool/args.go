package tool

// Argument accessors for handlers. Arguments arrive as a generic map
// decoded from JSON, so numbers are float64 and absence means "use the
// tool's documented default".

// String returns the named string argument, or "" when absent.
func String(args map[string]any, name string) string {
	if v, ok := args[name].(string); ok {
		return v
	}
	return ""
}

// Int returns the named numeric argument, or def when absent or not a
// number.
func Int(args map[string]any, name string, def int) int {
	switch v := args[name].(type) {
	case float64:
		return int(v)
	case int:
		return v
	}
	return def
}

// ClampedInt returns the named numeric argument bounded to [1, max],
// falling back to def when absent. Out-of-range values are clamped, not
// rejected, matching the remote APIs' own behavior.
func ClampedInt(args map[string]any, name string, def, max int) int {
	n := Int(args, name, def)
	if n < 1 {
		n = def
	}
	if n > max {
		n = max
	}
	return n
}

// Bool returns the named boolean argument, or def when absent.
func Bool(args map[string]any, name string, def bool) bool {
	if v, ok := args[name].(bool); ok {
		return v
	}
	return def
}
