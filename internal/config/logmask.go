// SPDX-License-Identifier: MIT

package config

import (
	"reflect"
	"strings"
	"unicode"
	"unicode/utf8"
)

// sensitiveKeywords mark field names whose values never reach logs.
var sensitiveKeywords = []string{
	"password",
	"secret",
	"token",
	"npsso",
	"cookie",
	"credential",
}

// MaskSecrets converts data into maps and slices suitable for structured
// logging, replacing non-empty values of sensitive fields with "***".
// Struct field names are rendered lowerCamel to match the YAML keys.
func MaskSecrets(data any) any {
	if data == nil {
		return nil
	}
	return maskValue(reflect.ValueOf(data))
}

func maskValue(val reflect.Value) any {
	for val.Kind() == reflect.Ptr || val.Kind() == reflect.Interface {
		if val.IsNil() {
			return nil
		}
		val = val.Elem()
	}

	switch val.Kind() {
	case reflect.Map:
		result := make(map[string]any, val.Len())
		iter := val.MapRange()
		for iter.Next() {
			key := iter.Key().String()
			result[key] = maskField(key, iter.Value())
		}
		return result

	case reflect.Slice, reflect.Array:
		result := make([]any, val.Len())
		for i := range result {
			result[i] = maskValue(val.Index(i))
		}
		return result

	case reflect.Struct:
		result := make(map[string]any)
		typ := val.Type()
		for i := 0; i < val.NumField(); i++ {
			field := typ.Field(i)
			if !field.IsExported() {
				continue
			}
			name := lowerFirst(field.Name)
			result[name] = maskField(name, val.Field(i))
		}
		return result

	default:
		if !val.IsValid() {
			return nil
		}
		return val.Interface()
	}
}

func maskField(name string, val reflect.Value) any {
	if !isSensitiveKey(name) {
		return maskValue(val)
	}
	if val.IsZero() {
		return ""
	}
	return "***"
}

func isSensitiveKey(key string) bool {
	lowerKey := strings.ToLower(key)
	if strings.HasSuffix(lowerKey, "url") {
		return false
	}
	for _, keyword := range sensitiveKeywords {
		if strings.Contains(lowerKey, keyword) {
			return true
		}
	}
	return false
}

func lowerFirst(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	// Acronym prefixes such as PSN or API are lowered as a whole.
	upper := 0
	for _, c := range s {
		if !unicode.IsUpper(c) {
			break
		}
		upper++
	}
	if upper > 1 && upper == len(s) {
		return strings.ToLower(s)
	}
	if upper > 1 {
		return strings.ToLower(s[:upper-1]) + s[upper-1:]
	}
	return string(unicode.ToLower(r)) + s[size:]
}
