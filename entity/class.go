package entity

import (
	"database/sql"
	"fmt"
	"reflect"
	"strings"

	"github.com/aarondl/strmangle"
	"github.com/google/uuid"
)

var (
	scannerType = reflect.TypeOf((*sql.Scanner)(nil)).Elem()
	uuidType    = reflect.TypeOf(uuid.UUID{})
)

func isUUIDType(t reflect.Type) bool {
	return t == uuidType
}

type class struct {
	name   string
	table  string
	typ    reflect.Type
	fields []Field
	pk     int
	lookup map[string]int
}

func (c *class) Name() string       { return c.name }
func (c *class) TableName() string  { return c.table }
func (c *class) Type() reflect.Type { return c.typ }

func (c *class) Fields() []Field {
	return append([]Field(nil), c.fields...)
}

func (c *class) PrimaryKey() (Field, bool) {
	if c.pk < 0 {
		return Field{}, false
	}
	return c.fields[c.pk], true
}

func (c *class) Lookup(name string) (Field, bool) {
	i, ok := c.lookup[Key(name)]
	if !ok {
		return Field{}, false
	}
	return c.fields[i], true
}

// index builds the lookup table and resolves the primary key: the first
// field tagged pk, else a field named ID or mapped to column id.
func (c *class) index() {
	c.pk = -1
	c.lookup = make(map[string]int, len(c.fields)*2)
	for i, f := range c.fields {
		for _, k := range []string{f.Column, f.GoName, f.Name} {
			if _, taken := c.lookup[Key(k)]; !taken {
				c.lookup[Key(k)] = i
			}
		}
		if f.PrimaryKey && c.pk < 0 {
			c.pk = i
		}
	}
	if c.pk >= 0 {
		return
	}
	for i, f := range c.fields {
		if !f.Virtual && (f.GoName == "ID" || strings.EqualFold(f.Column, "id")) {
			c.fields[i].PrimaryKey = true
			c.pk = i
			return
		}
	}
}

// Key normalizes a field name for matching: lower case, no underscores.
func Key(name string) string {
	return strings.ToLower(strings.ReplaceAll(name, "_", ""))
}

// Static builds a Class without reflection. Fields keep whatever Name,
// Column and flags the caller sets; a missing Name or Column is derived
// from the other.
func Static(name, table string, fields ...Field) Class {
	c := &class{name: name, table: table}
	for _, f := range fields {
		if f.Name == "" && f.Column == "" {
			continue
		}
		if f.Column == "" {
			f.Column = naming.ColumnName("", f.Name)
		}
		if f.Name == "" {
			f.Name = strmangle.CamelCase(f.Column)
		}
		if f.GoName == "" {
			f.GoName = strings.ToUpper(f.Name[:1]) + f.Name[1:]
		}
		c.fields = append(c.fields, f)
	}
	if table == "" {
		c.table = naming.TableName(name)
	}
	c.index()
	return c
}

// Persistent returns the non-virtual fields of c.
func Persistent(c Class) []Field {
	fields := c.Fields()
	out := fields[:0]
	for _, f := range fields {
		if !f.Virtual {
			out = append(out, f)
		}
	}
	return out
}

// SelectList returns the comma separated columns of the persistent fields.
func SelectList(c Class) string {
	fields := Persistent(c)
	cols := make([]string, len(fields))
	for i, f := range fields {
		cols[i] = f.Column
	}
	return strings.Join(cols, ",")
}

// ColumnValue is a persistent column and its value on an entity.
type ColumnValue struct {
	Field Field
	Value any
}

// Values reads the persistent column values of v. v may be a struct, a
// pointer to one, or a map keyed by field name or column.
func Values(c Class, v any) ([]ColumnValue, error) {
	if m, ok := v.(map[string]any); ok {
		return mapValues(c, m), nil
	}
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return nil, fmt.Errorf("entity: nil %s", c.Name())
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return nil, fmt.Errorf("entity: cannot read columns of %T", v)
	}

	var out []ColumnValue
	for _, f := range Persistent(c) {
		if f.Index == nil {
			return nil, fmt.Errorf("entity: %s.%s has no struct field", c.Name(), f.Name)
		}
		fv, ok := FieldByIndex(rv, f.Index)
		if !ok {
			out = append(out, ColumnValue{Field: f})
			continue
		}
		out = append(out, ColumnValue{Field: f, Value: fv.Interface()})
	}
	return out, nil
}

func mapValues(c Class, m map[string]any) []ColumnValue {
	var out []ColumnValue
	for _, f := range Persistent(c) {
		for _, k := range []string{f.Column, f.Name, f.GoName} {
			if val, ok := m[k]; ok {
				out = append(out, ColumnValue{Field: f, Value: val})
				break
			}
		}
	}
	return out
}

// FieldValue returns the addressable struct field of rv at index, allocating
// nil embedded pointers on the way.
func FieldValue(rv reflect.Value, index []int) reflect.Value {
	for i, x := range index {
		if i > 0 && rv.Kind() == reflect.Ptr {
			if rv.IsNil() {
				rv.Set(reflect.New(rv.Type().Elem()))
			}
			rv = rv.Elem()
		}
		rv = rv.Field(x)
	}
	return rv
}

// FieldByIndex reads the struct field of rv at index. It reports false when
// a nil embedded pointer is in the way.
func FieldByIndex(rv reflect.Value, index []int) (reflect.Value, bool) {
	for i, x := range index {
		if i > 0 && rv.Kind() == reflect.Ptr {
			if rv.IsNil() {
				return reflect.Value{}, false
			}
			rv = rv.Elem()
		}
		rv = rv.Field(x)
	}
	return rv, true
}

// EnsureUUID fills empty AutoUUID fields of the struct pointed to by v
// with a random UUID.
func EnsureUUID(c Class, v any) {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Ptr || rv.IsNil() {
		return
	}
	rv = rv.Elem()
	if rv.Kind() != reflect.Struct {
		return
	}
	for _, f := range c.Fields() {
		if !f.AutoUUID || f.Index == nil {
			continue
		}
		fv := FieldValue(rv, f.Index)
		if !fv.IsZero() {
			continue
		}
		id := uuid.New()
		switch {
		case fv.Kind() == reflect.String:
			fv.SetString(id.String())
		case fv.Type() == uuidType:
			fv.Set(reflect.ValueOf(id))
		}
	}
}
