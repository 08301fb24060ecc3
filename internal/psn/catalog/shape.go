// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package catalog

import (
	"sort"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
)

// payloadShape describes the keys and JSON types of a payload without any
// values, e.g. `{ugcDocument:array[2]{id:string,ugcType:number}}`.
// Only the top level and the first ugcDocument entry are described.
func payloadShape(body []byte) string {
	if !gjson.ValidBytes(body) {
		return "invalid-json"
	}
	root := gjson.ParseBytes(body)
	if !root.IsObject() {
		return jsonType(root)
	}

	var parts []string
	root.ForEach(func(key, value gjson.Result) bool {
		desc := key.String() + ":" + jsonType(value)
		if value.IsArray() {
			items := value.Array()
			desc += "[" + strconv.Itoa(len(items)) + "]"
			if len(items) > 0 && items[0].IsObject() {
				desc += objectKeys(items[0])
			}
		}
		parts = append(parts, desc)
		return true
	})
	sort.Strings(parts)
	return "{" + strings.Join(parts, ",") + "}"
}

func objectKeys(obj gjson.Result) string {
	var keys []string
	obj.ForEach(func(key, value gjson.Result) bool {
		keys = append(keys, key.String()+":"+jsonType(value))
		return true
	})
	sort.Strings(keys)
	return "{" + strings.Join(keys, ",") + "}"
}

func jsonType(v gjson.Result) string {
	switch {
	case v.IsObject():
		return "object"
	case v.IsArray():
		return "array"
	}
	switch v.Type {
	case gjson.String:
		return "string"
	case gjson.Number:
		return "number"
	case gjson.True, gjson.False:
		return "bool"
	case gjson.Null:
		return "null"
	default:
		return "unknown"
	}
}
