package message

import "strconv"

// Entry is a single key/value pair of a Map.
type Entry struct {
	Key   string
	Value any
}

// Map is an insertion-ordered mapping. Values are strings, nested Maps,
// or any other value rendered with fmt.Sprint.
type Map []Entry

// M builds a Map from alternating key/value arguments.
// A trailing key without a value is kept with an empty string value.
func M(keysAndValues ...any) Map {
	m := make(Map, 0, (len(keysAndValues)+1)/2)
	for i := 0; i < len(keysAndValues); i += 2 {
		var val any = ""
		if i+1 < len(keysAndValues) {
			val = keysAndValues[i+1]
		}
		m = append(m, Entry{Key: keyString(keysAndValues[i]), Value: val})
	}
	return m
}

// List builds a positional Map: keys are the indices of values.
func List(values ...any) Map {
	m := make(Map, len(values))
	for i, v := range values {
		m[i] = Entry{Key: strconv.Itoa(i), Value: v}
	}
	return m
}

// Set replaces the value for key, appending the entry when key is new.
func (m Map) Set(key string, value any) Map {
	for i := range m {
		if m[i].Key == key {
			m[i].Value = value
			return m
		}
	}
	return append(m, Entry{Key: key, Value: value})
}

// Get returns the value stored under key.
func (m Map) Get(key string) (any, bool) {
	for _, e := range m {
		if e.Key == key {
			return e.Value, true
		}
	}
	return nil, false
}
