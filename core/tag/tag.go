// Package tag fills zero-valued struct fields from `default:"..."` tags.
package tag

import (
	"encoding"
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"
)

const (
	tagName  = "default"
	maxDepth = 16
)

var (
	ErrTargetMustBePointer = errors.New("tag: target must be a non-nil pointer to struct")
	ErrUnsupportedType     = errors.New("tag: unsupported type")
	ErrMaxDepthExceeded    = errors.New("tag: max recursion depth exceeded")
)

var durationType = reflect.TypeFor[time.Duration]()

// FieldError reports the field whose default could not be applied.
type FieldError struct {
	Path  string
	Value string
	Err   error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("tag: field %q default %q: %v", e.Path, e.Value, e.Err)
}

func (e *FieldError) Unwrap() error { return e.Err }

// ApplyDefaults walks target (a pointer to struct) and sets every zero field
// that carries a default tag. Nested structs and non-nil pointers to structs
// are visited; slice elements that are structs get their own defaults applied.
//
//	type Refresh struct {
//	    MinInterval time.Duration `default:"30s"`
//	    MaxAttempts int           `default:"3"`
//	}
func ApplyDefaults(target any) error {
	v := reflect.ValueOf(target)
	if v.Kind() != reflect.Pointer || v.IsNil() || v.Elem().Kind() != reflect.Struct {
		return ErrTargetMustBePointer
	}
	return applyStruct(v.Elem(), "", 0)
}

func applyStruct(v reflect.Value, path string, depth int) error {
	if depth >= maxDepth {
		return ErrMaxDepthExceeded
	}
	t := v.Type()
	for i := range t.NumField() {
		field := t.Field(i)
		fv := v.Field(i)
		if !fv.CanSet() {
			continue
		}
		fpath := field.Name
		if path != "" {
			fpath = path + "." + field.Name
		}
		if err := applyField(fv, field.Tag.Get(tagName), fpath, depth); err != nil {
			return err
		}
	}
	return nil
}

func applyField(v reflect.Value, def, path string, depth int) error {
	switch v.Kind() {
	case reflect.Struct:
		if def == "" {
			return applyStruct(v, path, depth+1)
		}
	case reflect.Pointer:
		if v.Type().Elem().Kind() == reflect.Struct {
			// nil means the optional section is absent
			if v.IsNil() {
				return nil
			}
			return applyStruct(v.Elem(), path, depth+1)
		}
	case reflect.Slice:
		if v.Len() > 0 {
			for i := range v.Len() {
				elem := v.Index(i)
				if elem.Kind() == reflect.Struct {
					if err := applyStruct(elem, fmt.Sprintf("%s[%d]", path, i), depth+1); err != nil {
						return err
					}
				}
			}
			return nil
		}
	}

	if def == "" || !v.IsZero() {
		return nil
	}
	if err := parse(v, def); err != nil {
		return &FieldError{Path: path, Value: def, Err: err}
	}
	return nil
}

func parse(v reflect.Value, s string) error {
	if v.CanAddr() {
		if u, ok := v.Addr().Interface().(encoding.TextUnmarshaler); ok {
			return u.UnmarshalText([]byte(s))
		}
	}

	s = strings.TrimSpace(s)
	switch v.Kind() {
	case reflect.String:
		v.SetString(s)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if v.Type() == durationType {
			d, err := time.ParseDuration(s)
			if err != nil {
				return err
			}
			v.SetInt(int64(d))
			return nil
		}
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return err
		}
		v.SetInt(n)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			return err
		}
		v.SetUint(n)
	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(s, v.Type().Bits())
		if err != nil {
			return err
		}
		v.SetFloat(f)
	case reflect.Bool:
		b, err := strconv.ParseBool(s)
		if err != nil {
			return err
		}
		v.SetBool(b)
	case reflect.Slice:
		parts := strings.Split(s, ",")
		slice := reflect.MakeSlice(v.Type(), len(parts), len(parts))
		for i, p := range parts {
			if err := parse(slice.Index(i), p); err != nil {
				return err
			}
		}
		v.Set(slice)
	case reflect.Map:
		m := reflect.MakeMap(v.Type())
		for pair := range strings.SplitSeq(s, ",") {
			key, val, ok := strings.Cut(pair, ":")
			if !ok {
				continue
			}
			k := reflect.New(v.Type().Key()).Elem()
			e := reflect.New(v.Type().Elem()).Elem()
			if err := parse(k, key); err != nil {
				return err
			}
			if err := parse(e, val); err != nil {
				return err
			}
			m.SetMapIndex(k, e)
		}
		v.Set(m)
	default:
		return ErrUnsupportedType
	}
	return nil
}
