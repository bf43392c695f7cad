package lg

import (
	"strings"
	"text/template"

	"github.com/hupe1980/dialogmesh/core"
	"github.com/hupe1980/dialogmesh/internal/util"
)

// Generator resolves an output template into the text sent to the user.
//
// Implementations MUST return *core.EvaluationError when the template cannot
// be resolved; the offending step faults the turn.
type Generator interface {
	Resolve(tmpl string, mem *core.Memory, locale string) (string, error)
}

// TemplateGeneratorOptions configures a TemplateGenerator.
type TemplateGeneratorOptions struct {
	// Funcs adds template helpers on top of the built-in set. Helpers are
	// fixed per generator; templates are cached by source and locale.
	Funcs template.FuncMap

	// DecimalComma lists language subtags (lowercase, e.g. "de") whose
	// formatNumber output uses a decimal comma. Defaults to the common
	// European languages; fixed per generator once constructed.
	DecimalComma map[string]bool
}

// TemplateGenerator renders output templates with Go's text/template engine
// against the memory snapshot. The turn's locale is exposed to templates as
// {{.locale}} and through locale-bound formatting helpers.
type TemplateGenerator struct {
	opts TemplateGeneratorOptions

	// cache is per generator: parsed templates capture the generator's
	// function set, so generators must not share entries.
	cache util.TemplateCache
}

// NewTemplateGenerator creates the default generator.
func NewTemplateGenerator(optFns ...func(o *TemplateGeneratorOptions)) *TemplateGenerator {
	opts := TemplateGeneratorOptions{}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.DecimalComma == nil {
		opts.DecimalComma = defaultDecimalComma
	}

	// The table is copied so later mutations by the caller cannot change
	// rendering behind the cache.
	table := make(map[string]bool, len(opts.DecimalComma))
	for lang, comma := range opts.DecimalComma {
		table[strings.ToLower(lang)] = comma
	}
	opts.DecimalComma = table

	return &TemplateGenerator{opts: opts}
}

var _ Generator = (*TemplateGenerator)(nil)

// Resolve implements Generator.
func (g *TemplateGenerator) Resolve(tmpl string, mem *core.Memory, locale string) (string, error) {
	if !strings.Contains(tmpl, "{{") {
		return tmpl, nil
	}

	data := mem.Snapshot()
	data["locale"] = locale

	funcs := util.TemplateFuncs()
	for name, fn := range g.localeFuncs(locale) {
		funcs[name] = fn
	}
	for name, fn := range g.opts.Funcs {
		funcs[name] = fn
	}

	out, err := g.cache.Render(locale+"\x00"+tmpl, tmpl, funcs, data)
	if err != nil {
		return "", core.NewEvaluationError(tmpl, err)
	}

	// Absent properties render as empty text, matching memory's read
	// semantics, rather than leaking template internals to the user.
	return strings.ReplaceAll(out, "<no value>", ""), nil
}

// defaultDecimalComma seeds the DecimalComma option with the common
// European languages.
var defaultDecimalComma = map[string]bool{
	"de": true,
	"es": true,
	"fr": true,
	"it": true,
	"nl": true,
	"pt": true,
}

func (g *TemplateGenerator) localeFuncs(locale string) template.FuncMap {
	lang := locale
	if i := strings.IndexByte(lang, '-'); i >= 0 {
		lang = lang[:i]
	}
	lang = strings.ToLower(lang)

	return template.FuncMap{
		"formatNumber": func(v any) string {
			s := core.CanonicalString(v)
			if g.opts.DecimalComma[lang] {
				s = strings.Replace(s, ".", ",", 1)
			}
			return s
		},
	}
}
