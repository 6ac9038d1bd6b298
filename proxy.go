package dao

import (
	"fmt"
	"reflect"

	"github.com/sirupsen/logrus"

	"github.com/nrfta/go-dao/entity"
)

// baseBinder is implemented by *Base[T].
type baseBinder interface {
	bindBase(e *Engine, owner string) (entity.Class, error)
}

var baseBinderType = reflect.TypeOf((*baseBinder)(nil)).Elem()

// CreateProxy builds a DAO of type D. D must be a struct embedding
// Base[T]; each exported func field becomes a method resolved against T.
// The owner key used for template lookup is the name of D.
//
// Derived method names are validated here, so an unknown field surfaces
// as a FieldResolutionError before any call is made.
func CreateProxy[D any](e *Engine) (*D, error) {
	d := new(D)
	if err := Bind(e, d); err != nil {
		return nil, err
	}
	return d, nil
}

// Bind populates the func fields of the DAO struct pointed to by target.
func Bind(e *Engine, target any) error {
	rv := reflect.ValueOf(target)
	if rv.Kind() != reflect.Ptr || rv.IsNil() || rv.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("dao: %T is not a pointer to a struct", target)
	}
	v := rv.Elem()
	t := v.Type()
	owner := t.Name()

	var class entity.Class
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if !sf.Anonymous || !reflect.PointerTo(sf.Type).Implements(baseBinderType) {
			continue
		}
		c, err := v.Field(i).Addr().Interface().(baseBinder).bindBase(e, owner)
		if err != nil {
			return &ResolutionError{Owner: owner, Method: sf.Name, Reason: err.Error()}
		}
		class = c
		break
	}
	if class == nil {
		return &ResolutionError{Owner: owner, Reason: "DAO structs must embed dao.Base[T]"}
	}

	bound := 0
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if sf.Anonymous || !sf.IsExported() || sf.Type.Kind() != reflect.Func {
			continue
		}
		p, err := newPlan(e, newFieldMethod(owner, sf), class)
		if err != nil {
			return err
		}
		v.Field(i).Set(reflect.MakeFunc(sf.Type, p.call))
		bound++
	}

	e.logger.WithFields(logrus.Fields{
		"dao":     owner,
		"entity":  class.Name(),
		"methods": bound,
	}).Debug("dao: proxy created")
	return nil
}

// NewMethod builds a callable for a hand-described method, for callers that
// cannot declare a DAO struct. fn must be a pointer to a func variable of
// m.Type().
func NewMethod(e *Engine, m Method, class entity.Class, fn any) error {
	rv := reflect.ValueOf(fn)
	if rv.Kind() != reflect.Ptr || rv.Elem().Kind() != reflect.Func || rv.Elem().Type() != m.Type() {
		return fmt.Errorf("dao: %T is not a pointer to %s", fn, m.Type())
	}
	p, err := newPlan(e, m, class)
	if err != nil {
		return err
	}
	rv.Elem().Set(reflect.MakeFunc(m.Type(), p.call))
	return nil
}
