package utils

import (
	"fmt"

	"github.com/elliotchance/orderedmap/v2"
	"github.com/oomph-ac/oflight/internal"
)

// OrderedMapToString converts an orderedmap to a string in the format of "[key=value key2=value2]".
func OrderedMapToString(data *orderedmap.OrderedMap[string, any]) string {
	if data == nil {
		return "[]"
	}

	b := internal.Buffer()
	defer internal.PutBuffer(b)

	b.WriteByte('[')
	for i, key := range data.Keys() {
		if i > 0 {
			b.WriteByte(' ')
		}
		v, _ := data.Get(key)
		fmt.Fprintf(b, "%s=%v", key, v)
	}
	b.WriteByte(']')
	return b.String()
}

// KeyValsToString formats slog-style keyvals into a single bracketed string.
// Example: KeyValsToString("foo", 1, "bar", true) => "[foo=1 bar=true]".
// If an odd number of values is provided, the last value is ignored.
func KeyValsToString(kv ...any) string {
	m := orderedmap.NewOrderedMap[string, any]()
	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			key = fmt.Sprint(kv[i])
		}
		m.Set(key, kv[i+1])
	}
	return OrderedMapToString(m)
}
