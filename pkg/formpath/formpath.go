// Package formpath reads and writes nested fields of typed form trees by path.
//
// Set never mutates its input. Only the structs, slices and maps along the
// addressed path are copied; every untouched branch of the result shares
// storage with the original tree.
package formpath

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

var (
	ErrPathNotFound = errors.New("formpath: path not found")
	ErrTypeMismatch = errors.New("formpath: type mismatch")
	ErrEmptyPath    = errors.New("formpath: empty path")
)

// Split turns a dotted path such as "location.coordinates.0" into segments.
func Split(path string) []string {
	if path == "" {
		return nil
	}
	return strings.Split(path, ".")
}

// Get returns the value addressed by path inside root.
func Get(root any, path []string) (any, error) {
	if len(path) == 0 {
		return nil, ErrEmptyPath
	}
	v := reflect.ValueOf(root)
	for i, seg := range path {
		next, err := child(v, seg)
		if err != nil {
			return nil, fmt.Errorf("%w: %s", err, strings.Join(path[:i+1], "."))
		}
		v = next
	}
	return v.Interface(), nil
}

// Set returns a copy of root with the field at path replaced by value.
func Set[T any](root T, path []string, value any) (T, error) {
	var zero T
	if len(path) == 0 {
		return zero, ErrEmptyPath
	}
	updated, err := set(reflect.ValueOf(root), path, value, 0)
	if err != nil {
		return zero, err
	}
	return updated.Interface().(T), nil
}

func set(v reflect.Value, path []string, value any, depth int) (reflect.Value, error) {
	if depth == len(path) {
		return coerce(v.Type(), value, path)
	}
	seg := path[depth]

	switch v.Kind() {
	case reflect.Struct:
		idx, ok := fieldIndex(v.Type(), seg)
		if !ok {
			return reflect.Value{}, notFound(path, depth)
		}
		out := reflect.New(v.Type()).Elem()
		out.Set(v)
		updated, err := set(v.Field(idx), path, value, depth+1)
		if err != nil {
			return reflect.Value{}, err
		}
		out.Field(idx).Set(updated)
		return out, nil

	case reflect.Slice, reflect.Array:
		i, err := strconv.Atoi(seg)
		if err != nil || i < 0 || i >= v.Len() {
			return reflect.Value{}, notFound(path, depth)
		}
		var out reflect.Value
		if v.Kind() == reflect.Slice {
			out = reflect.MakeSlice(v.Type(), v.Len(), v.Len())
			reflect.Copy(out, v)
		} else {
			out = reflect.New(v.Type()).Elem()
			out.Set(v)
		}
		updated, err := set(v.Index(i), path, value, depth+1)
		if err != nil {
			return reflect.Value{}, err
		}
		out.Index(i).Set(updated)
		return out, nil

	case reflect.Map:
		if v.Type().Key().Kind() != reflect.String {
			return reflect.Value{}, notFound(path, depth)
		}
		key := reflect.ValueOf(seg).Convert(v.Type().Key())
		current := v.MapIndex(key)
		last := depth == len(path)-1
		if !current.IsValid() && !last {
			return reflect.Value{}, notFound(path, depth)
		}
		out := reflect.MakeMapWithSize(v.Type(), v.Len()+1)
		iter := v.MapRange()
		for iter.Next() {
			out.SetMapIndex(iter.Key(), iter.Value())
		}
		var updated reflect.Value
		var err error
		if current.IsValid() {
			updated, err = set(current, path, value, depth+1)
		} else {
			updated, err = coerce(v.Type().Elem(), value, path)
		}
		if err != nil {
			return reflect.Value{}, err
		}
		out.SetMapIndex(key, updated)
		return out, nil

	case reflect.Ptr:
		if v.IsNil() {
			return reflect.Value{}, notFound(path, depth)
		}
		updated, err := set(v.Elem(), path, value, depth)
		if err != nil {
			return reflect.Value{}, err
		}
		out := reflect.New(v.Type().Elem())
		out.Elem().Set(updated)
		return out, nil

	case reflect.Interface:
		if v.IsNil() {
			return reflect.Value{}, notFound(path, depth)
		}
		updated, err := set(v.Elem(), path, value, depth)
		if err != nil {
			return reflect.Value{}, err
		}
		out := reflect.New(v.Type()).Elem()
		out.Set(updated)
		return out, nil
	}

	return reflect.Value{}, notFound(path, depth)
}

func child(v reflect.Value, seg string) (reflect.Value, error) {
	for v.Kind() == reflect.Ptr || v.Kind() == reflect.Interface {
		if v.IsNil() {
			return reflect.Value{}, ErrPathNotFound
		}
		v = v.Elem()
	}
	switch v.Kind() {
	case reflect.Struct:
		idx, ok := fieldIndex(v.Type(), seg)
		if !ok {
			return reflect.Value{}, ErrPathNotFound
		}
		return v.Field(idx), nil
	case reflect.Slice, reflect.Array:
		i, err := strconv.Atoi(seg)
		if err != nil || i < 0 || i >= v.Len() {
			return reflect.Value{}, ErrPathNotFound
		}
		return v.Index(i), nil
	case reflect.Map:
		if v.Type().Key().Kind() != reflect.String {
			return reflect.Value{}, ErrPathNotFound
		}
		item := v.MapIndex(reflect.ValueOf(seg).Convert(v.Type().Key()))
		if !item.IsValid() {
			return reflect.Value{}, ErrPathNotFound
		}
		return item, nil
	}
	return reflect.Value{}, ErrPathNotFound
}

// fieldIndex resolves a segment against the struct's json names first and the
// Go field names second.
func fieldIndex(t reflect.Type, seg string) (int, bool) {
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		name := strings.Split(f.Tag.Get("json"), ",")[0]
		if name == seg {
			return i, true
		}
	}
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if f.IsExported() && f.Name == seg {
			return i, true
		}
	}
	return 0, false
}

func coerce(t reflect.Type, value any, path []string) (reflect.Value, error) {
	if value == nil {
		return reflect.Zero(t), nil
	}
	v := reflect.ValueOf(value)
	if v.Type().AssignableTo(t) {
		out := reflect.New(t).Elem()
		out.Set(v)
		return out, nil
	}
	if v.Kind() == t.Kind() && v.Type().ConvertibleTo(t) {
		return v.Convert(t), nil
	}
	// []any from decoded JSON into a typed slice.
	if v.Kind() == reflect.Slice && t.Kind() == reflect.Slice {
		out := reflect.MakeSlice(t, v.Len(), v.Len())
		for i := 0; i < v.Len(); i++ {
			item, err := coerce(t.Elem(), v.Index(i).Interface(), path)
			if err != nil {
				return reflect.Value{}, err
			}
			out.Index(i).Set(item)
		}
		return out, nil
	}
	return reflect.Value{}, fmt.Errorf("%w: %s wants %s, got %s", ErrTypeMismatch, strings.Join(path, "."), t, v.Type())
}

func notFound(path []string, depth int) error {
	return fmt.Errorf("%w: %s", ErrPathNotFound, strings.Join(path[:depth+1], "."))
}
