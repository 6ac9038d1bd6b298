package entity

import (
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/aarondl/strmangle"
	"golang.org/x/sync/singleflight"
	"gorm.io/gorm/schema"
)

// Field describes one persistent (or virtual) field of an entity.
type Field struct {
	// Name is the logical lowerCamel name, e.g. recommendStatus.
	Name string
	// GoName is the struct field name, e.g. RecommendStatus.
	GoName string
	// Column is the resolved column name, override included.
	Column string
	// ColumnOverride is set when the column name came from a db tag.
	ColumnOverride string
	Virtual        bool
	PrimaryKey     bool
	// AutoUUID fields get a random UUID on save when empty.
	AutoUUID bool
	// Index is the reflect index path, nil for static classes.
	Index []int
	Type  reflect.Type
}

// HasColumnOverride reports whether the column name was set explicitly.
func (f Field) HasColumnOverride() bool {
	return f.ColumnOverride != ""
}

// Class is the metadata capability the engine consumes. It can be backed
// by reflection (Of, For) or built by hand (Static).
type Class interface {
	Name() string
	TableName() string
	Fields() []Field
	PrimaryKey() (Field, bool)
	// Lookup finds a field by logical name, Go name or column, ignoring case
	// and underscores.
	Lookup(name string) (Field, bool)
	Type() reflect.Type
}

// Tabler lets an entity choose its table name.
type Tabler interface {
	TableName() string
}

var (
	naming = schema.NamingStrategy{SingularTable: true}

	cache sync.Map
	group singleflight.Group
)

// For returns the reflected Class of T.
func For[T any]() (Class, error) {
	return Of(reflect.TypeOf((*T)(nil)).Elem())
}

// Of returns the reflected Class of t, which must be a struct or a pointer
// to one. Results are cached per type.
func Of(t reflect.Type) (Class, error) {
	for t != nil && t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t == nil || t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("entity: %v is not a struct", t)
	}
	if c, ok := cache.Load(t); ok {
		return c.(Class), nil
	}

	// Type strings are not unique: local types in different functions may
	// share one. The flight key uses the type's identity.
	v, err, _ := group.Do(fmt.Sprintf("%p", t), func() (interface{}, error) {
		if c, ok := cache.Load(t); ok {
			return c, nil
		}
		c, err := reflectClass(t)
		if err != nil {
			return nil, err
		}
		cache.Store(t, c)
		return c, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(Class), nil
}

func reflectClass(t reflect.Type) (*class, error) {
	c := &class{
		name:  t.Name(),
		table: tableName(t),
		typ:   t,
	}
	if err := collect(t, nil, c); err != nil {
		return nil, err
	}
	c.index()
	return c, nil
}

func tableName(t reflect.Type) string {
	if t.Implements(tablerType) {
		return reflect.Zero(t).Interface().(Tabler).TableName()
	}
	if reflect.PointerTo(t).Implements(tablerType) {
		return reflect.New(t).Interface().(Tabler).TableName()
	}
	return naming.TableName(t.Name())
}

var tablerType = reflect.TypeOf((*Tabler)(nil)).Elem()

func collect(t reflect.Type, prefix []int, c *class) error {
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		index := append(append([]int(nil), prefix...), i)

		dbTag := sf.Tag.Get("db")
		if dbTag == "-" {
			continue
		}
		if sf.Anonymous && dbTag == "" {
			ft := sf.Type
			if ft.Kind() == reflect.Ptr {
				ft = ft.Elem()
			}
			if ft.Kind() == reflect.Struct && !isValueStruct(ft) {
				if err := collect(ft, index, c); err != nil {
					return err
				}
				continue
			}
		}
		if !sf.IsExported() {
			continue
		}

		f := Field{
			GoName: sf.Name,
			Column: naming.ColumnName("", sf.Name),
			Index:  index,
			Type:   sf.Type,
		}
		f.Name = strmangle.CamelCase(f.Column)
		if col := strings.TrimSpace(strings.Split(dbTag, ",")[0]); col != "" {
			f.ColumnOverride = col
			f.Column = col
		}
		for _, opt := range strings.Split(sf.Tag.Get("dao"), ",") {
			switch strings.TrimSpace(opt) {
			case "pk":
				f.PrimaryKey = true
			case "virtual":
				f.Virtual = true
			case "uuid":
				f.AutoUUID = true
			}
		}
		if f.AutoUUID && sf.Type.Kind() != reflect.String && !isUUIDType(sf.Type) {
			return fmt.Errorf("entity: %s.%s is tagged uuid but is %s", t.Name(), sf.Name, sf.Type)
		}
		c.fields = append(c.fields, f)
	}
	return nil
}

// isValueStruct reports struct types that map to a single column, such as
// time.Time or null.String.
func isValueStruct(t reflect.Type) bool {
	if t.PkgPath() == "time" {
		return true
	}
	return reflect.PointerTo(t).Implements(scannerType)
}
