package domain

import (
	"encoding/json"
	"fmt"
	"strings"
)

// RenderTemplate substitutes {Name} holes in template with the matching
// property values. Holes without a property are left as written, and "{{" and
// "}}" render as literal braces. Format and alignment suffixes ({Name:fmt},
// {Name,10}) are accepted but ignored.
func RenderTemplate(template string, props map[string]any) string {
	if !strings.ContainsAny(template, "{}") {
		return template
	}

	var b strings.Builder
	b.Grow(len(template))

	for i := 0; i < len(template); i++ {
		c := template[i]
		switch {
		case c == '{' && i+1 < len(template) && template[i+1] == '{':
			b.WriteByte('{')
			i++
		case c == '}' && i+1 < len(template) && template[i+1] == '}':
			b.WriteByte('}')
			i++
		case c == '{':
			end := strings.IndexByte(template[i+1:], '}')
			if end < 0 {
				b.WriteString(template[i:])
				return b.String()
			}
			hole := template[i+1 : i+1+end]
			name := strings.TrimLeft(hole, "@$")
			if cut := strings.IndexAny(name, ":,"); cut >= 0 {
				name = name[:cut]
			}
			if v, ok := props[name]; ok {
				b.WriteString(renderValue(v))
			} else {
				b.WriteString(template[i : i+2+end])
			}
			i += end + 1
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

func renderValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case fmt.Stringer:
		return val.String()
	case error:
		return val.Error()
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(data)
}
