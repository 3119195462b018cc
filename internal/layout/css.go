package layout

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/andybalholm/cascadia"
	"github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/css"
)

// ErrInvalidStylesheet indicates a stylesheet whose blocks cannot be delimited.
var ErrInvalidStylesheet = errors.New("invalid stylesheet")

// Stylesheet is a named CSS source. Names only serve diagnostics.
type Stylesheet struct {
	Name string
	CSS  string
}

// declaration is one property/value pair.
type declaration struct {
	property  string
	value     string
	important bool
}

// rule is a qualified rule with its parsed selector group.
type rule struct {
	selectors cascadia.SelectorGroup
	decls     []declaration
	order     int // global source order across all sheets
}

// sheet is a parsed stylesheet.
type sheet struct {
	rules []rule
	page  []declaration // declarations of plain @page rules, in order
}

// parseStylesheet parses src. Rules with invalid selectors are dropped, as
// browsers do. order is advanced for every kept rule.
func parseStylesheet(name, src string, order *int) (*sheet, error) {
	if err := checkBalance(src); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidStylesheet, name, err)
	}

	s := &sheet{}
	var (
		stack    []openBlock
		selector strings.Builder
		errs     int
	)
	p := css.NewParser(parse.NewInputString(src), false)
	for {
		gt, _, data := p.Next()
		parentSkip := len(stack) > 0 && stack[len(stack)-1].skip

		switch gt {
		case css.ErrorGrammar:
			// Malformed constructs are skipped. Each error consumes
			// input, so more errors than bytes means the parser is stuck.
			if errors.Is(p.Err(), io.EOF) || errs > len(src) {
				return s, nil
			}
			errs++
		case css.QualifiedRuleGrammar:
			selector.WriteString(tokenText(p.Values()))
			selector.WriteByte(',')
		case css.BeginRulesetGrammar:
			selector.WriteString(tokenText(p.Values()))
			group, err := cascadia.ParseGroup(selector.String())
			selector.Reset()
			if parentSkip || err != nil {
				stack = append(stack, openBlock{skip: true})
				continue
			}
			*order++
			stack = append(stack, openBlock{rule: &rule{selectors: group, order: *order}})
		case css.BeginAtRuleGrammar:
			prelude := strings.ToLower(strings.TrimSpace(tokenText(p.Values())))
			b := openBlock{skip: true}
			switch strings.ToLower(string(data)) {
			case "@page":
				// Page selectors such as :first are not supported.
				b = openBlock{page: !strings.Contains(prelude, ":"), skip: parentSkip || strings.Contains(prelude, ":")}
			case "@media":
				b = openBlock{skip: parentSkip || !mediaApplies(prelude)}
			}
			stack = append(stack, b)
		case css.DeclarationGrammar:
			if len(stack) == 0 || parentSkip {
				continue
			}
			d, ok := newDeclaration(data, p.Values())
			if !ok {
				continue
			}
			switch top := &stack[len(stack)-1]; {
			case top.rule != nil:
				top.rule.decls = append(top.rule.decls, d)
			case top.page:
				s.page = append(s.page, d)
			}
		case css.EndRulesetGrammar, css.EndAtRuleGrammar:
			if len(stack) == 0 {
				continue
			}
			if top := stack[len(stack)-1]; top.rule != nil {
				s.rules = append(s.rules, *top.rule)
			}
			stack = stack[:len(stack)-1]
		}
	}
}

// openBlock is a block being parsed. Declarations go to rule, or to the
// sheet's page declarations when page is set.
type openBlock struct {
	rule *rule
	page bool
	skip bool // @font-face, screen media and the like
}

// checkBalance reports unbalanced braces. Braces inside strings and
// comments are single tokens and do not count.
func checkBalance(src string) error {
	l := css.NewLexer(parse.NewInputString(src))
	depth := 0
	for {
		tt, _ := l.Next()
		switch tt {
		case css.ErrorToken:
			if err := l.Err(); !errors.Is(err, io.EOF) {
				return err
			}
			if depth != 0 {
				return errors.New("unterminated block")
			}
			return nil
		case css.LeftBraceToken:
			depth++
		case css.RightBraceToken:
			if depth--; depth < 0 {
				return errors.New("unexpected '}'")
			}
		}
	}
}

// mediaApplies reports whether a media query list targets paged output.
func mediaApplies(query string) bool {
	if query == "" {
		return true
	}
	for _, q := range strings.Split(query, ",") {
		q = strings.TrimSpace(q)
		if strings.HasPrefix(q, "print") || strings.HasPrefix(q, "all") {
			return true
		}
	}
	return false
}

// parseDeclarations parses an inline style attribute.
func parseDeclarations(body string) []declaration {
	var decls []declaration
	p := css.NewParser(parse.NewInputString(body), true)
	for errs := 0; ; {
		gt, _, data := p.Next()
		switch gt {
		case css.ErrorGrammar:
			if errors.Is(p.Err(), io.EOF) || errs > len(body) {
				return decls
			}
			errs++
		case css.DeclarationGrammar:
			if d, ok := newDeclaration(data, p.Values()); ok {
				decls = append(decls, d)
			}
		}
	}
}

// newDeclaration builds a declaration from a property name and its value
// tokens, splitting off a trailing !important.
func newDeclaration(prop []byte, values []css.Token) (declaration, bool) {
	d := declaration{
		property: strings.ToLower(string(prop)),
		value:    strings.TrimSpace(tokenText(values)),
	}
	if idx := strings.LastIndex(strings.ToLower(d.value), "!important"); idx != -1 {
		d.important = true
		d.value = strings.TrimSpace(d.value[:idx])
	}
	return d, d.property != "" && d.value != ""
}

// tokenText joins tokens back into source text. The parser keeps single
// spaces between tokens that were separated by whitespace.
func tokenText(tokens []css.Token) string {
	var b strings.Builder
	for _, t := range tokens {
		b.Write(t.Data)
	}
	return b.String()
}
