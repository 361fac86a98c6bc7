// Package config loads struct-tagged configuration from an optional YAML
// file and the process environment.
//
// Supported tags:
//
//	env:"NAME"       environment variable overriding the field
//	yaml:"name"      key in the YAML file
//	default:"value"  applied when the field is still zero after loading
//	required:"true"  missing value is an error unless a default exists
package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"gopkg.in/yaml.v3"
)

var durationType = reflect.TypeOf(time.Duration(0))

// Validator interface allows config structs to implement custom validation logic.
// It runs after files, environment and defaults have been applied.
type Validator interface {
	Validate() error
}

// setFromString assigns raw to field according to its kind.
func setFromString(field reflect.Value, raw string) error {
	if field.Type() == durationType {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return fmt.Errorf("failed to convert %q to duration: %w", raw, err)
		}
		field.SetInt(int64(d))
		return nil
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(raw)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		v, err := strconv.ParseInt(raw, 10, field.Type().Bits())
		if err != nil {
			return fmt.Errorf("failed to convert %q to int: %w", raw, err)
		}
		field.SetInt(v)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		v, err := strconv.ParseUint(raw, 10, field.Type().Bits())
		if err != nil {
			return fmt.Errorf("failed to convert %q to uint: %w", raw, err)
		}
		field.SetUint(v)
	case reflect.Float32, reflect.Float64:
		v, err := strconv.ParseFloat(raw, field.Type().Bits())
		if err != nil {
			return fmt.Errorf("failed to convert %q to float: %w", raw, err)
		}
		field.SetFloat(v)
	case reflect.Bool:
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return fmt.Errorf("failed to convert %q to bool: %w", raw, err)
		}
		field.SetBool(v)
	case reflect.Slice:
		if field.Type().Elem().Kind() != reflect.String {
			return fmt.Errorf("unsupported slice type %s", field.Type())
		}
		parts := strings.Split(raw, ",")
		slice := reflect.MakeSlice(field.Type(), len(parts), len(parts))
		for i, p := range parts {
			slice.Index(i).SetString(strings.TrimSpace(p))
		}
		field.Set(slice)
	default:
		return fmt.Errorf("unsupported kind %s", field.Kind())
	}
	return nil
}

func fieldKey(t reflect.Type, f reflect.StructField) string {
	return t.PkgPath() + "." + t.Name() + "." + f.Name
}

// applyEnv overlays environment variables and records which fields were set.
func applyEnv(val reflect.Value, typ reflect.Type, set map[string]bool) error {
	for i := 0; i < val.NumField(); i++ {
		field := val.Field(i)
		sf := typ.Field(i)
		if !sf.IsExported() {
			continue
		}

		if field.Kind() == reflect.Struct && field.Type() != durationType {
			if err := applyEnv(field, sf.Type, set); err != nil {
				return err
			}
			continue
		}

		name := sf.Tag.Get("env")
		if name == "" {
			continue
		}
		raw, ok := os.LookupEnv(name)
		if !ok || raw == "" {
			continue
		}
		if err := setFromString(field, raw); err != nil {
			return fmt.Errorf("env %s: %w", name, err)
		}
		set[fieldKey(typ, sf)] = true
	}
	return nil
}

// applyDefaults fills zero fields from default tags and reports missing
// required fields. All problems are collected rather than stopping at the first.
func applyDefaults(val reflect.Value, typ reflect.Type, set map[string]bool) error {
	var result error
	for i := 0; i < val.NumField(); i++ {
		field := val.Field(i)
		sf := typ.Field(i)
		if !sf.IsExported() {
			continue
		}

		if field.Kind() == reflect.Struct && field.Type() != durationType {
			if err := applyDefaults(field, sf.Type, set); err != nil {
				result = multierror.Append(result, err)
			}
			continue
		}

		def, hasDefault := sf.Tag.Lookup("default")
		required := isTrue(sf.Tag.Get("required")) && def == ""

		if !field.IsZero() {
			continue
		}
		if required {
			result = multierror.Append(result, fmt.Errorf("required field env:%s / yaml:%s is missing",
				sf.Tag.Get("env"), sf.Tag.Get("yaml")))
			continue
		}
		if !hasDefault || def == "" || set[fieldKey(typ, sf)] {
			continue
		}
		if err := setFromString(field, def); err != nil {
			result = multierror.Append(result, fmt.Errorf("default for %s: %w", sf.Name, err))
		}
	}
	return result
}

func isTrue(s string) bool {
	s = strings.ToLower(s)
	return s == "true" || s == "1"
}

func load[T any](dest *T) error {
	val := reflect.ValueOf(dest).Elem()
	typ := val.Type()

	set := make(map[string]bool)
	if err := applyEnv(val, typ, set); err != nil {
		return err
	}
	if err := applyDefaults(val, typ, set); err != nil {
		var zero T
		*dest = zero
		return err
	}

	if v, ok := any(*dest).(Validator); ok {
		if err := v.Validate(); err != nil {
			return fmt.Errorf("validation failed: %w", err)
		}
	}
	return nil
}

// GetConfigFromEnvVars loads configuration from environment variables only.
//
//	var cfg MyConfig
//	err := GetConfigFromEnvVars(&cfg)
func GetConfigFromEnvVars[T any](dest *T) error {
	return load(dest)
}

// GetConfig reads the YAML file at path first, then overlays environment
// variables. ${VAR} references inside the file are expanded. An empty path
// means environment only. With allowFileErrors set, an unreadable or
// malformed file is ignored instead of failing the load.
func GetConfig[T any](dest *T, path string, allowFileErrors bool) error {
	if path == "" {
		return load(dest)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if allowFileErrors {
			return load(dest)
		}
		return fmt.Errorf("failed to read file: %w", err)
	}
	// ${VAR} placeholders are expanded before parsing; unset vars become empty
	data = []byte(os.ExpandEnv(string(data)))
	if err := yaml.Unmarshal(data, dest); err != nil {
		if allowFileErrors {
			var zero T
			*dest = zero
			return load(dest)
		}
		return fmt.Errorf("failed to unmarshal YAML: %w", err)
	}
	return load(dest)
}
