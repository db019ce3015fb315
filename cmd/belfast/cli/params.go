// Copyright 2026 The Belfast Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"
)

// FlagBinder is implemented by types that bind their own flags. When a
// struct field's type implements FlagBinder, [BindFlags] calls
// AddFlags instead of reflecting its tags.
type FlagBinder interface {
	AddFlags(flagSet *pflag.FlagSet)
}

// FlagsFromParams creates a FlagSet bound to the tagged fields of
// params, which must be a pointer to a struct. Panics on invalid input
// since that is a programming error.
func FlagsFromParams(name string, params any) *pflag.FlagSet {
	flagSet := pflag.NewFlagSet(name, pflag.ContinueOnError)
	flagSet.SortFlags = false
	if err := BindFlags(params, flagSet); err != nil {
		panic(fmt.Sprintf("cli.FlagsFromParams(%q): %v", name, err))
	}
	return flagSet
}

// BindFlags registers a flag for each tagged field of params.
//
// # Struct tags
//
//   - flag:"name" or flag:"name,n": long name and optional shorthand.
//     Fields without a flag tag are skipped.
//   - desc:"help text": the flag's usage line.
//   - default:"value": parsed according to the field's type. Slices
//     take a comma-separated list.
//
// # Supported field types
//
// string, bool, int, int64, float64, [time.Duration], []string, []int64.
//
// Embedded structs are bound recursively unless they implement
// [FlagBinder].
func BindFlags(params any, flagSet *pflag.FlagSet) error {
	value := reflect.ValueOf(params)
	if value.Kind() != reflect.Pointer || value.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("params must be a pointer to a struct, got %T", params)
	}
	return bindStructFields(value.Elem(), flagSet)
}

func bindStructFields(structValue reflect.Value, flagSet *pflag.FlagSet) error {
	structType := structValue.Type()
	for i := range structType.NumField() {
		field := structType.Field(i)
		fieldValue := structValue.Field(i)

		if field.Type.Kind() == reflect.Struct && field.IsExported() && fieldValue.CanAddr() {
			if binder, ok := fieldValue.Addr().Interface().(FlagBinder); ok {
				binder.AddFlags(flagSet)
				continue
			}
		}
		if field.Anonymous && field.Type.Kind() == reflect.Struct {
			if err := bindStructFields(fieldValue, flagSet); err != nil {
				return fmt.Errorf("embedded %s: %w", field.Name, err)
			}
			continue
		}

		tag := field.Tag.Get("flag")
		if tag == "" {
			continue
		}
		name, shorthand, _ := strings.Cut(tag, ",")
		if !fieldValue.CanAddr() {
			return fmt.Errorf("field %s: not addressable", field.Name)
		}
		if err := bindField(fieldValue, flagSet, name, shorthand, field.Tag.Get("desc"), field.Tag.Get("default")); err != nil {
			return fmt.Errorf("field %s: %w", field.Name, err)
		}
	}
	return nil
}

func bindField(fieldValue reflect.Value, flagSet *pflag.FlagSet, name, shorthand, usage, fallback string) error {
	var err error
	switch target := fieldValue.Addr().Interface().(type) {
	case *string:
		flagSet.StringVarP(target, name, shorthand, fallback, usage)

	case *bool:
		var value bool
		if fallback != "" {
			value, err = strconv.ParseBool(fallback)
		}
		flagSet.BoolVarP(target, name, shorthand, value, usage)

	case *int:
		var value int
		if fallback != "" {
			value, err = strconv.Atoi(fallback)
		}
		flagSet.IntVarP(target, name, shorthand, value, usage)

	case *int64:
		var value int64
		if fallback != "" {
			value, err = strconv.ParseInt(fallback, 10, 64)
		}
		flagSet.Int64VarP(target, name, shorthand, value, usage)

	case *float64:
		var value float64
		if fallback != "" {
			value, err = strconv.ParseFloat(fallback, 64)
		}
		flagSet.Float64VarP(target, name, shorthand, value, usage)

	case *time.Duration:
		var value time.Duration
		if fallback != "" {
			value, err = time.ParseDuration(fallback)
		}
		flagSet.DurationVarP(target, name, shorthand, value, usage)

	case *[]string:
		var value []string
		if fallback != "" {
			value = strings.Split(fallback, ",")
		}
		flagSet.StringSliceVarP(target, name, shorthand, value, usage)

	case *[]int64:
		var value []int64
		for _, part := range strings.Split(fallback, ",") {
			if part == "" {
				continue
			}
			parsed, parseErr := strconv.ParseInt(part, 10, 64)
			if parseErr != nil {
				err = parseErr
				break
			}
			value = append(value, parsed)
		}
		flagSet.Int64SliceVarP(target, name, shorthand, value, usage)

	default:
		return fmt.Errorf("unsupported type %s for flag --%s", fieldValue.Type(), name)
	}
	if err != nil {
		return fmt.Errorf("default for --%s: %w", name, err)
	}
	return nil
}
