package validation

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// AddBuiltin adds built in common validators.
func AddBuiltin(validator *Validator) {
	validator.Add("required", required)
	validator.Add("min", min)
	validator.Add("max", max)
	validator.Add("oneof", oneof)
	validator.Add("prefix", prefix)
}

func required(input interface{}, param string) error {
	v := reflect.ValueOf(input)
	if !v.IsValid() || v.IsZero() {
		return fmt.Errorf("a value is required")
	}
	return nil
}

func min(input interface{}, param string) error {
	v := reflect.Indirect(reflect.ValueOf(input))
	switch v.Kind() {
	case reflect.String:
		n, err := strconv.Atoi(param)
		if err != nil {
			return numErr("min", err)
		}
		if v.Len() < n {
			return fmt.Errorf("length must be at least %d characters", n)
		}
		return nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.Atoi(param)
		if err != nil {
			return numErr("min", err)
		}
		if v.Int() < int64(n) {
			return fmt.Errorf("must be %d or more", n)
		}
		return nil
	case reflect.Array, reflect.Map, reflect.Slice:
		n, err := strconv.Atoi(param)
		if err != nil {
			return numErr("min", err)
		}
		if v.Len() < n {
			return fmt.Errorf("length must be %d or more", n)
		}
		return nil
	default:
		return InvalidRuleError{Reason: fmt.Sprintf("min: cannot check %T", input)}
	}
}

func max(input interface{}, param string) error {
	v := reflect.Indirect(reflect.ValueOf(input))
	switch v.Kind() {
	case reflect.String:
		n, err := strconv.Atoi(param)
		if err != nil {
			return numErr("max", err)
		}
		if v.Len() > n {
			return fmt.Errorf("length must be at most %d characters", n)
		}
		return nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.Atoi(param)
		if err != nil {
			return numErr("max", err)
		}
		if v.Int() > int64(n) {
			return fmt.Errorf("must be %d or less", n)
		}
		return nil
	case reflect.Array, reflect.Map, reflect.Slice:
		n, err := strconv.Atoi(param)
		if err != nil {
			return numErr("max", err)
		}
		if v.Len() > n {
			return fmt.Errorf("length must be %d or less", n)
		}
		return nil
	default:
		return InvalidRuleError{Reason: fmt.Sprintf("max: cannot check %T", input)}
	}
}

func oneof(input interface{}, param string) error {
	opts := strings.Split(param, " ")
	str := fmt.Sprintf("%v", reflect.Indirect(reflect.ValueOf(input)))
	if str == "" {
		// Presence is checked by required.
		return nil
	}
	for _, o := range opts {
		if str == o {
			return nil
		}
	}
	return fmt.Errorf("must be one of [%s]", strings.Join(opts, ", "))
}

func prefix(input interface{}, param string) error {
	str, ok := input.(string)
	if !ok {
		return InvalidRuleError{Reason: fmt.Sprintf("prefix: cannot check %T", input)}
	}
	if str == "" {
		// Presence is checked by required.
		return nil
	}
	if !strings.HasPrefix(str, param) {
		return fmt.Errorf("must start with %q", param)
	}
	return nil
}

func numErr(rule string, err error) error {
	return InvalidRuleError{Reason: fmt.Sprintf("%s: %v", rule, err)}
}
