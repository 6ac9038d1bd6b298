package templates

import (
	"fmt"
	"strings"
	"text/template"
	"time"

	"github.com/Masterminds/sprig/v3"
	"github.com/friendsofgo/errors"
	"github.com/jmoiron/sqlx"
)

// Key identifies a template: the owning DAO and the method name.
type Key struct {
	Owner  string
	Method string
}

// String returns "Owner.Method".
func (k Key) String() string {
	return k.Owner + "." + k.Method
}

// Template is one named SQL body. It is immutable once loaded.
type Template struct {
	Key
	Source       string
	Lines        []string
	LastModified time.Time

	compiled *template.Template
}

// Text returns the raw template body.
func (t *Template) Text() string {
	return strings.Join(t.Lines, "\n")
}

// Funcs are the helpers available inside template bodies: the sprig text
// functions, join(sep, list) among them.
func Funcs() template.FuncMap {
	return sprig.TxtFuncMap()
}

func compile(key Key, text string) (*template.Template, error) {
	return template.New(key.String()).
		Funcs(Funcs()).
		Option("missingkey=error").
		Parse(text)
}

const castEscape = "#CAST#"

// Bind renders the body with data, then turns :name references into
// positional "?" parameters and expands slice parameters for in lists.
// Colons and question marks inside single quoted literals are left alone.
func (t *Template) Bind(data map[string]any) (string, []any, error) {
	var buf strings.Builder
	if err := t.compiled.Execute(&buf, data); err != nil {
		return "", nil, errors.Wrapf(err, "render template %s", t.Key)
	}
	query, literals := protectLiterals(strings.TrimSpace(buf.String()))
	query = strings.ReplaceAll(query, "::", castEscape)

	query, params, err := sqlx.Named(query, data)
	if err != nil {
		return "", nil, errors.Wrapf(err, "bind template %s", t.Key)
	}
	query, params, err = sqlx.In(query, params...)
	if err != nil {
		return "", nil, errors.Wrapf(err, "expand template %s", t.Key)
	}
	return restoreLiterals(strings.ReplaceAll(query, castEscape, "::"), literals), params, nil
}

func literalToken(i int) string {
	return fmt.Sprintf("#LIT%d#", i)
}

// protectLiterals swaps every single quoted literal for a token. A doubled
// quote inside a literal is part of it.
func protectLiterals(query string) (string, []string) {
	if !strings.Contains(query, "'") {
		return query, nil
	}
	var (
		b        strings.Builder
		literals []string
	)
	for i := 0; i < len(query); {
		if query[i] != '\'' {
			b.WriteByte(query[i])
			i++
			continue
		}
		j := i + 1
		for j < len(query) {
			if query[j] == '\'' {
				if j+1 < len(query) && query[j+1] == '\'' {
					j += 2
					continue
				}
				break
			}
			j++
		}
		end := min(j+1, len(query))
		b.WriteString(literalToken(len(literals)))
		literals = append(literals, query[i:end])
		i = end
	}
	return b.String(), literals
}

func restoreLiterals(query string, literals []string) string {
	for i, lit := range literals {
		query = strings.Replace(query, literalToken(i), lit, 1)
	}
	return query
}

// DuplicateTemplateError is returned when two templates share an owner and
// method name, within one source or across sources.
type DuplicateTemplateError struct {
	Key     Key
	Sources []string
}

// Error names the key and both sources.
func (e *DuplicateTemplateError) Error() string {
	return fmt.Sprintf("duplicate template %s in %s", e.Key, strings.Join(e.Sources, " and "))
}
