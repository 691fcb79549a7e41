// Package form flattens nested request fields into
// application/x-www-form-urlencoded values.
//
// Nested values use bracket notation: a map under "options" becomes
// options[key]=value, a slice under "urls" becomes urls[0]=..., urls[1]=...
// Nil values and empty collections produce no field. Booleans are sent as
// 1 and 0.
package form

import (
	"fmt"
	"net/url"
	"sort"
	"strconv"

	"github.com/kart-io/clovertg/pkg/message"
)

// ContentType is the media type of an encoded form.
const ContentType = "application/x-www-form-urlencoded"

// Values flattens fields into url.Values.
func Values(fields map[string]any) url.Values {
	values := url.Values{}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		add(values, k, fields[k])
	}
	return values
}

// Encode flattens fields and returns the encoded request body.
func Encode(fields map[string]any) string {
	return Values(fields).Encode()
}

func add(values url.Values, key string, v any) {
	switch x := v.(type) {
	case nil:
	case string:
		values.Add(key, x)
	case *string:
		if x != nil {
			values.Add(key, *x)
		}
	case bool:
		if x {
			values.Add(key, "1")
		} else {
			values.Add(key, "0")
		}
	case int:
		values.Add(key, strconv.Itoa(x))
	case int64:
		values.Add(key, strconv.FormatInt(x, 10))
	case float64:
		values.Add(key, strconv.FormatFloat(x, 'f', -1, 64))
	case message.Map:
		for _, e := range x {
			add(values, key+"["+e.Key+"]", e.Value)
		}
	case message.Button:
		add(values, key+"[id]", x.ID)
		add(values, key+"[text]", x.Text)
	case []message.Button:
		for i, b := range x {
			add(values, indexed(key, i), b)
		}
	case map[string]any:
		for _, k := range sortedKeys(x) {
			add(values, key+"["+k+"]", x[k])
		}
	case map[string]string:
		for _, k := range sortedStringKeys(x) {
			values.Add(key+"["+k+"]", x[k])
		}
	case []any:
		for i, item := range x {
			add(values, indexed(key, i), item)
		}
	case []string:
		for i, item := range x {
			values.Add(indexed(key, i), item)
		}
	default:
		values.Add(key, fmt.Sprint(x))
	}
}

func indexed(key string, i int) string {
	return key + "[" + strconv.Itoa(i) + "]"
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedStringKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
