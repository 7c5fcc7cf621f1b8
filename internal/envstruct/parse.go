package envstruct

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"
)

var (
	ErrEnvNotSet    = errors.New("environment variable not set")
	ErrInvalidValue = errors.New("v must be a pointer to a struct")
	ErrParse        = errors.New("parse environment variable")
)

//nolint:gochecknoglobals // reflect type used for comparisons.
var durationType = reflect.TypeFor[time.Duration]()

// Populate populates the fields of the pointer to struct v with values from the environment.
//
// lookupEnv is used to look up environment variables. It has the same signature as [os.LookupEnv].
// Fields in the struct v must be tagged with `env:"ENV_VAR"` where ENV_VAR is the name of the environment variable.
// If no environment variable matching ENV_VAR is provided, the field must be tagged with default value
// `envDefault:"value"` or else ErrEnvNotSet is returned.
//
// Supported field types are string, bool, int, [time.Duration] and []string. Slices are read as comma-separated
// values with surrounding whitespace trimmed and empty items dropped.
func Populate(v any, lookupEnv func(string) (string, bool)) error {
	ptrRef := reflect.ValueOf(v)
	if ptrRef.Kind() != reflect.Pointer {
		return fmt.Errorf("%w: not pointer: %v", ErrInvalidValue, v)
	}
	ref := ptrRef.Elem()
	if ref.Kind() != reflect.Struct {
		return fmt.Errorf("%w: not struct: %v", ErrInvalidValue, v)
	}

	refType := ref.Type()
	var errorList []error
	for i := range refType.NumField() {
		field := refType.Field(i)
		envVarName, ok := field.Tag.Lookup("env")
		if !ok {
			continue
		}
		value := ref.Field(i)
		if !value.CanSet() {
			errorList = append(errorList, fmt.Errorf("%w: cannot set field: %s", ErrInvalidValue, field.Name))
			continue
		}
		raw, err := lookupWithFallback(envVarName, field.Tag, lookupEnv)
		if err != nil {
			errorList = append(errorList, err)
			continue
		}
		if err = assign(value, raw); err != nil {
			errorList = append(errorList, fmt.Errorf("field %s (env %s): %w", field.Name, envVarName, err))
		}
	}

	return errors.Join(errorList...)
}

func assign(value reflect.Value, raw string) error {
	if value.Type() == durationType {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return fmt.Errorf("%w: duration %q: %w", ErrParse, raw, err)
		}
		value.SetInt(int64(d))
		return nil
	}

	switch value.Kind() { //nolint:exhaustive // only a handful of kinds are supported.
	case reflect.String:
		value.SetString(raw)
	case reflect.Bool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return fmt.Errorf("%w: bool %q: %w", ErrParse, raw, err)
		}
		value.SetBool(b)
	case reflect.Int:
		n, err := strconv.Atoi(raw)
		if err != nil {
			return fmt.Errorf("%w: int %q: %w", ErrParse, raw, err)
		}
		value.SetInt(int64(n))
	case reflect.Slice:
		if value.Type().Elem().Kind() != reflect.String {
			return fmt.Errorf("%w: only string slices are supported, got %s", ErrInvalidValue, value.Type())
		}
		items := make([]string, 0)
		for item := range strings.SplitSeq(raw, ",") {
			if item = strings.TrimSpace(item); item != "" {
				items = append(items, item)
			}
		}
		value.Set(reflect.ValueOf(items))
	default:
		return fmt.Errorf("%w: unsupported type %s", ErrInvalidValue, value.Type())
	}
	return nil
}

func lookupWithFallback(envVarName string, tag reflect.StructTag, lookupEnv func(string) (string, bool)) (string,
	error) {
	if v, ok := lookupEnv(envVarName); ok {
		return v, nil
	}
	if v, ok := tag.Lookup("envDefault"); ok {
		return v, nil
	}
	return "", fmt.Errorf("%w: %s", ErrEnvNotSet, envVarName)
}
