package templates

import (
	"bufio"
	"path"
	"strings"

	"github.com/friendsofgo/errors"
)

// Marker prefixes that open a template body. The method name follows the
// prefix, e.g. "-- @FindActive" or "## FindActive".
var markers = []string{"-- @", "## "}

// Owner returns the owner key of a source: its base name without extension.
func Owner(name string) string {
	base := path.Base(strings.ReplaceAll(name, "\\", "/"))
	return strings.TrimSuffix(base, path.Ext(base))
}

// Parse splits one source into templates. Text before the first marker is
// ignored. Leading and trailing blank lines of each body are dropped.
func Parse(src RawSource) ([]*Template, error) {
	owner := Owner(src.Name)
	var (
		out     []*Template
		current *Template
		seen    = map[string]bool{}
	)

	finish := func() error {
		if current == nil {
			return nil
		}
		current.Lines = trimBlank(current.Lines)
		if len(current.Lines) == 0 {
			return errors.Errorf("template %s in %s has an empty body", current.Key, src.Name)
		}
		compiled, err := compile(current.Key, current.Text())
		if err != nil {
			return errors.Wrapf(err, "parse template %s in %s", current.Key, src.Name)
		}
		current.compiled = compiled
		out = append(out, current)
		return nil
	}

	scanner := bufio.NewScanner(strings.NewReader(src.Text))
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if method, ok := marker(line); ok {
			if err := finish(); err != nil {
				return nil, err
			}
			if seen[method] {
				return nil, &DuplicateTemplateError{Key: Key{Owner: owner, Method: method}, Sources: []string{src.Name, src.Name}}
			}
			seen[method] = true
			current = &Template{
				Key:          Key{Owner: owner, Method: method},
				Source:       src.Name,
				LastModified: src.LastModified,
			}
			continue
		}
		if current != nil {
			current.Lines = append(current.Lines, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrapf(err, "read %s", src.Name)
	}
	if err := finish(); err != nil {
		return nil, err
	}
	return out, nil
}

func marker(line string) (string, bool) {
	trimmed := strings.TrimSpace(line)
	for _, m := range markers {
		if !strings.HasPrefix(trimmed, m) {
			continue
		}
		fields := strings.Fields(trimmed[len(m):])
		if len(fields) == 0 {
			return "", false
		}
		return fields[0], true
	}
	return "", false
}

func trimBlank(lines []string) []string {
	start, end := 0, len(lines)
	for start < end && strings.TrimSpace(lines[start]) == "" {
		start++
	}
	for end > start && strings.TrimSpace(lines[end-1]) == "" {
		end--
	}
	return lines[start:end]
}
