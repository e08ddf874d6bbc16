// Package tmpl holds named Liquid templates parsed once at startup.
package tmpl

import (
	"fmt"

	"github.com/osteele/liquid"

	"github.com/ignite/formsync/internal/pkg/logger"
)

// Set is a collection of parsed templates. It is safe for concurrent use
// once built.
type Set struct {
	engine *liquid.Engine
	tpls   map[string]*liquid.Template
}

// Parse compiles every source. A syntax error names the failing template.
func Parse(sources map[string]string) (*Set, error) {
	engine := liquid.NewEngine()
	engine.RegisterFilter("short_token", logger.ShortToken)

	s := &Set{engine: engine, tpls: make(map[string]*liquid.Template, len(sources))}
	for name, src := range sources {
		tpl, err := engine.ParseString(src)
		if err != nil {
			return nil, fmt.Errorf("template %s: %w", name, err)
		}
		s.tpls[name] = tpl
	}
	return s, nil
}

// MustParse is Parse for compiled-in templates.
func MustParse(sources map[string]string) *Set {
	s, err := Parse(sources)
	if err != nil {
		panic(err)
	}
	return s
}

// Render executes the named template with vars.
func (s *Set) Render(name string, vars map[string]interface{}) (string, error) {
	tpl, ok := s.tpls[name]
	if !ok {
		return "", fmt.Errorf("template %s not defined", name)
	}
	out, err := tpl.RenderString(vars)
	if err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return out, nil
}
