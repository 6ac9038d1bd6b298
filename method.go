package dao

import (
	"reflect"
	"strconv"
	"strings"
)

// Method describes one DAO method: who owns it, what it is called, its
// signature and its annotations. Proxies build one per func field; the
// resolver only uses this view, so methods can also be described by hand
// with StaticMethod.
type Method interface {
	Owner() string
	Name() string
	Type() reflect.Type
	// Tag returns the value of an annotation such as "select" or "params".
	Tag(key string) (string, bool)
}

// Annotation keys read from the dao struct tag of a func field. Entries are
// separated by ";" so select lists can hold commas:
//
//	FindByAge func(age int) ([]User, error) `dao:"select=id,name;params=age"`
const (
	TagSelect = "select"
	TagParams = "params"
)

// StaticMethod is a Method described by value.
type StaticMethod struct {
	OwnerName  string
	MethodName string
	FuncType   reflect.Type
	Tags       map[string]string
}

// Owner returns OwnerName.
func (m StaticMethod) Owner() string { return m.OwnerName }

// Name returns MethodName.
func (m StaticMethod) Name() string { return m.MethodName }

// Type returns FuncType.
func (m StaticMethod) Type() reflect.Type { return m.FuncType }

// Tag looks key up in Tags.
func (m StaticMethod) Tag(key string) (string, bool) {
	v, ok := m.Tags[key]
	return v, ok
}

type fieldMethod struct {
	owner string
	field reflect.StructField
	tags  map[string]string
}

func newFieldMethod(owner string, field reflect.StructField) fieldMethod {
	return fieldMethod{owner: owner, field: field, tags: parseTag(field.Tag.Get("dao"))}
}

func (m fieldMethod) Owner() string      { return m.owner }
func (m fieldMethod) Name() string       { return m.field.Name }
func (m fieldMethod) Type() reflect.Type { return m.field.Type }

func (m fieldMethod) Tag(key string) (string, bool) {
	v, ok := m.tags[key]
	return v, ok
}

func parseTag(tag string) map[string]string {
	out := map[string]string{}
	for _, part := range strings.Split(tag, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		k, v, _ := strings.Cut(part, "=")
		out[strings.TrimSpace(k)] = strings.TrimSpace(v)
	}
	return out
}

// paramNames returns the template names of n arguments: the params
// annotation where given, arg0, arg1, ... otherwise.
func paramNames(m Method, n int) []string {
	names := make([]string, n)
	var declared []string
	if v, ok := m.Tag(TagParams); ok && v != "" {
		declared = strings.Split(v, ",")
	}
	for i := range names {
		if i < len(declared) && strings.TrimSpace(declared[i]) != "" {
			names[i] = strings.TrimSpace(declared[i])
		} else {
			names[i] = "arg" + strconv.Itoa(i)
		}
	}
	return names
}
