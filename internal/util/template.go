package util

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"sync"
	"text/template"
)

const maxTemplateOutput = 64 * 1024

// TemplateCache caches parsed templates by key so repeated renders skip the
// parse. The zero value is ready to use; safe for concurrent use. Because
// parsed templates capture their function map, a cache must only ever see
// one function set per key. Callers with per-instance or per-locale
// functions hold their own cache and key accordingly.
type TemplateCache struct {
	templates sync.Map
}

// TemplateFuncs returns the helper functions available in dialog templates.
func TemplateFuncs() template.FuncMap {
	return template.FuncMap{
		"default": func(defaultVal any, val any) any {
			if val == nil || val == "" {
				return defaultVal
			}
			return val
		},
		"upper": strings.ToUpper,
		"lower": strings.ToLower,
		"title": func(s string) string {
			if len(s) == 0 {
				return s
			}
			return strings.ToUpper(string(s[0])) + strings.ToLower(s[1:])
		},
		"join": func(sep string, items []interface{}) string {
			strItems := make([]string, len(items))
			for i, item := range items {
				strItems[i] = fmt.Sprintf("%v", item)
			}
			return strings.Join(strItems, sep)
		},
	}
}

// Render parses (or reuses) the template identified by cacheKey and executes
// it against state.
func (c *TemplateCache) Render(cacheKey, text string, funcs template.FuncMap, state map[string]any) (string, error) {
	var tmpl *template.Template

	if cached, ok := c.templates.Load(cacheKey); ok {
		tmpl = cached.(*template.Template)
	} else {
		var err error

		tmpl, err = template.New("dialog").Funcs(funcs).Parse(text)
		if err != nil {
			return "", err
		}

		c.templates.Store(cacheKey, tmpl)
	}

	var buf bytes.Buffer

	lw := &limitWriter{w: &buf, n: maxTemplateOutput}
	if err := tmpl.Execute(lw, state); err != nil {
		return "", err
	}

	return buf.String(), nil
}

// defaultCache backs RenderTemplate, whose function set never varies.
var defaultCache TemplateCache

// RenderTemplate replaces template variables using Go's text/template package.
// This lives in internal to avoid committing to public API stability prematurely.
func RenderTemplate(text string, state map[string]any) (string, error) {
	if !strings.Contains(text, "{{") { // fast path: no template markers
		return text, nil
	}

	return defaultCache.Render(text, text, TemplateFuncs(), state)
}

// limitWriter caps output from template.Execute so a misconfigured template
// cannot balloon a turn.
type limitWriter struct {
	w       io.Writer
	n       int64
	written int64
}

func (lw *limitWriter) Write(p []byte) (int, error) {
	if lw.written+int64(len(p)) > lw.n {
		allowed := lw.n - lw.written
		if allowed > 0 {
			n, err := lw.w.Write(p[:allowed])
			lw.written += int64(n)
			if err != nil {
				return n, err
			}
		}
		return 0, fmt.Errorf("template output exceeds %d bytes", lw.n)
	}

	n, err := lw.w.Write(p)
	lw.written += int64(n)

	return n, err
}
