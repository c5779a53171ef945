package templates

import (
	"fmt"
	"strings"
	"text/template"
)

// GetTemplateFunc returns the template functions available to simulator
// command templates
func GetTemplateFunc() template.FuncMap {
	return template.FuncMap{
		"quote": shellQuote,
		"join": func(sep string, parts []string) string {
			return strings.Join(parts, sep)
		},
		"default": func(def string, value any) string {
			s := fmt.Sprint(value)
			if value == nil || s == "" {
				return def
			}
			return s
		},
		"hex": func(v int64) string {
			return fmt.Sprintf("0x%x", v)
		},
	}
}

// New parses a command template with the shared functions. Missing fields are
// an error so that a typo in a simulator file is caught at load time.
func New(name, text string) (*template.Template, error) {
	return template.New(name).Funcs(GetTemplateFunc()).Option("missingkey=error").Parse(text)
}

// Render executes tmpl and folds the result onto a single line. Spacing inside
// a line is left alone so that options reach the shell unmodified.
func Render(tmpl *template.Template, data any) (string, error) {
	var sb strings.Builder
	if err := tmpl.Execute(&sb, data); err != nil {
		return "", err
	}
	lines := strings.Split(sb.String(), "\n")
	parts := lines[:0]
	for _, line := range lines {
		if line = strings.TrimSpace(line); line != "" {
			parts = append(parts, line)
		}
	}
	return strings.Join(parts, " "), nil
}

// shellQuote wraps s in single quotes for /bin/sh
func shellQuote(s string) string {
	if s == "" {
		return "''"
	}
	if !strings.ContainsAny(s, " \t\n'\"\\$`;&|<>()*?[]#~{}!") {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'"'"'`) + "'"
}
