package dao

import (
	"database/sql"
	"fmt"
	"reflect"
	"time"

	"github.com/mitchellh/mapstructure"

	"github.com/nrfta/go-dao/entity"
)

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999 -0700 MST",
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// scanHook feeds driver values to sql.Scanner targets such as null.String.
func scanHook(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
	if from == to || !reflect.PointerTo(to).Implements(scannerType) {
		return data, nil
	}
	v := reflect.New(to)
	if err := v.Interface().(sql.Scanner).Scan(data); err != nil {
		return nil, err
	}
	return v.Elem().Interface(), nil
}

// bytesHook turns []byte column values into strings unless the target is
// itself a slice.
func bytesHook(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
	b, ok := data.([]byte)
	if !ok || to.Kind() == reflect.Slice {
		return data, nil
	}
	return string(b), nil
}

// timeHook parses text timestamps as stored by sqlite and returned by some
// drivers.
func timeHook(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
	s, ok := data.(string)
	if !ok || to != timeType {
		return data, nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return nil, fmt.Errorf("cannot parse %q as time", s)
}

var decodeHook = mapstructure.ComposeDecodeHookFunc(scanHook, bytesHook, timeHook)

// decodeValue converts one column value into the value pointed to by dest.
func decodeValue(value any, dest any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       decodeHook,
		WeaklyTypedInput: true,
		Result:           dest,
	})
	if err != nil {
		return err
	}
	return dec.Decode(value)
}

// decodeRow fills the struct dest from row. Columns are matched to fields
// by column, Go or logical name; unknown columns and NULLs are skipped.
func decodeRow(row Row, class entity.Class, dest reflect.Value) error {
	for col, value := range row {
		if value == nil {
			continue
		}
		f, ok := class.Lookup(col)
		if !ok || f.Index == nil {
			continue
		}
		fv := entity.FieldValue(dest, f.Index)
		if err := decodeValue(value, fv.Addr().Interface()); err != nil {
			return fmt.Errorf("column %s into %s.%s: %w", col, class.Name(), f.GoName, err)
		}
	}
	return nil
}

// mapRows maps rows into a slice of elem, or of *elem when ptr is set.
func mapRows(rows []Row, class entity.Class, elem reflect.Type, ptr bool) (reflect.Value, error) {
	sliceType := reflect.SliceOf(elem)
	if ptr {
		sliceType = reflect.SliceOf(reflect.PointerTo(elem))
	}
	out := reflect.MakeSlice(sliceType, 0, len(rows))
	for _, row := range rows {
		item := reflect.New(elem)
		if err := decodeRow(row, class, item.Elem()); err != nil {
			return reflect.Value{}, err
		}
		if ptr {
			out = reflect.Append(out, item)
		} else {
			out = reflect.Append(out, item.Elem())
		}
	}
	return out, nil
}

// scalarOf returns the only column of row.
func scalarOf(row Row) (any, error) {
	if len(row) != 1 {
		return nil, fmt.Errorf("expected one column, got %d", len(row))
	}
	for _, v := range row {
		return v, nil
	}
	return nil, nil
}

// mapScalars maps the single column of each row into a slice of t's
// element type.
func mapScalars(rows []Row, t reflect.Type) (reflect.Value, error) {
	out := reflect.MakeSlice(t, 0, len(rows))
	for _, row := range rows {
		v, err := mapScalar(row, t.Elem())
		if err != nil {
			return reflect.Value{}, err
		}
		out = reflect.Append(out, v)
	}
	return out, nil
}

func mapScalar(row Row, t reflect.Type) (reflect.Value, error) {
	value, err := scalarOf(row)
	if err != nil {
		return reflect.Value{}, err
	}
	item := reflect.New(t)
	if value == nil {
		return item.Elem(), nil
	}
	if err := decodeValue(value, item.Interface()); err != nil {
		return reflect.Value{}, err
	}
	return item.Elem(), nil
}
