package dao

import (
	"context"
	"database/sql"
	"fmt"
	"reflect"
	"time"
)

type resultShape int

const (
	shapeNone    resultShape = iota // error only
	shapeList                       // []T or []*T
	shapeOne                        // *T, nil when there is no row
	shapeValue                      // T, ErrNoRows when there is no row
	shapeScalars                    // []string, []int64, ...
	shapeScalar                     // string, time.Time, ...
	shapeInt                        // count or affected rows
	shapeBool                       // exists
	shapePage                       // *Pageable[T]
)

var (
	contextType     = reflect.TypeOf((*context.Context)(nil)).Elem()
	errorType       = reflect.TypeOf((*error)(nil)).Elem()
	pageRequestType = reflect.TypeOf((*PageRequest)(nil))
	scannerType     = reflect.TypeOf((*sql.Scanner)(nil)).Elem()
	timeType        = reflect.TypeOf(time.Time{})
)

// signature is the analysed form of a DAO func type.
type signature struct {
	fn        reflect.Type
	ctxIndex  int
	pageIndex int
	args      []int

	shape  resultShape
	result reflect.Type
	// elem is the struct type rows map into for list, one, value and page
	// shapes; elemPtr is set when the slice holds pointers.
	elem    reflect.Type
	elemPtr bool
}

func (s *signature) paged() bool {
	return s.pageIndex >= 0 || s.shape == shapePage
}

// analyze accepts func types of the form
//
//	func([ctx context.Context,] args... [, req *PageRequest]) ([R,] error)
func analyze(fn reflect.Type) (*signature, error) {
	if fn.Kind() != reflect.Func {
		return nil, fmt.Errorf("%s is not a func", fn)
	}
	if fn.IsVariadic() {
		return nil, fmt.Errorf("variadic methods are not supported")
	}
	s := &signature{fn: fn, ctxIndex: -1, pageIndex: -1}

	for i := 0; i < fn.NumIn(); i++ {
		in := fn.In(i)
		switch {
		case i == 0 && in == contextType:
			s.ctxIndex = i
		case in == pageRequestType:
			if s.pageIndex >= 0 {
				return nil, fmt.Errorf("more than one *PageRequest parameter")
			}
			s.pageIndex = i
		default:
			s.args = append(s.args, i)
		}
	}

	switch fn.NumOut() {
	case 1:
		if fn.Out(0) != errorType {
			return nil, fmt.Errorf("the last result must be error")
		}
		s.shape = shapeNone
		if s.paged() {
			return nil, fmt.Errorf("paged methods must return a page or a slice")
		}
		return s, nil
	case 2:
		if fn.Out(1) != errorType {
			return nil, fmt.Errorf("the last result must be error")
		}
	default:
		return nil, fmt.Errorf("methods must return (R, error) or error")
	}

	rt := fn.Out(0)
	s.result = rt
	switch {
	case rt.Kind() == reflect.Ptr && rt.Implements(pageResultType):
		s.shape = shapePage
		s.elem = reflect.New(rt.Elem()).Interface().(pageResult).elemType()
		if s.elem.Kind() == reflect.Ptr {
			s.elem, s.elemPtr = s.elem.Elem(), true
		}
		if !isRowStruct(s.elem) {
			return nil, fmt.Errorf("page element %s is not a struct", s.elem)
		}
	case rt.Kind() == reflect.Slice && rt.Elem().Kind() != reflect.Uint8:
		e := rt.Elem()
		switch {
		case isRowStruct(e):
			s.shape, s.elem = shapeList, e
		case e.Kind() == reflect.Ptr && isRowStruct(e.Elem()):
			s.shape, s.elem, s.elemPtr = shapeList, e.Elem(), true
		default:
			s.shape = shapeScalars
		}
	case rt.Kind() == reflect.Ptr && isRowStruct(rt.Elem()):
		s.shape, s.elem = shapeOne, rt.Elem()
	case isRowStruct(rt):
		s.shape, s.elem = shapeValue, rt
	case rt.Kind() == reflect.Bool:
		s.shape = shapeBool
	case isInt(rt):
		s.shape = shapeInt
	default:
		s.shape = shapeScalar
	}

	if s.paged() && s.shape != shapePage && s.shape != shapeList {
		return nil, fmt.Errorf("paged methods must return a page or a slice")
	}
	return s, nil
}

// isRowStruct reports struct types that map to a whole row rather than a
// single column.
func isRowStruct(t reflect.Type) bool {
	if t.Kind() != reflect.Struct || t == timeType {
		return false
	}
	return !reflect.PointerTo(t).Implements(scannerType)
}

func isInt(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return true
	}
	return false
}

// results builds the return values of a call.
func (s *signature) results(v reflect.Value, err error) []reflect.Value {
	errValue := reflect.Zero(errorType)
	if err != nil {
		errValue = reflect.ValueOf(&err).Elem()
	}
	if s.shape == shapeNone {
		return []reflect.Value{errValue}
	}
	if err != nil || !v.IsValid() {
		v = reflect.Zero(s.result)
	}
	return []reflect.Value{v, errValue}
}
