// Package record defines the uniform in-memory result model: a Record value
// decoded from an API response and the insertion-ordered, duplicate-rejecting
// List that every listing operation returns.
package record

import (
	"encoding/json"
	"fmt"
	"net"
	"sort"
	"strconv"
	"time"
)

// Record is a single decoded API object. Identity is structural: two records
// with the same Key are the same record for duplicate rejection and sorting.
type Record interface {
	// Key returns the record's natural identifier (asset id, QID, ...).
	Key() string

	// ToMap returns the structural field view. Nested records and lists stay
	// as their in-memory types.
	ToMap() map[string]any
}

// Item is the generic Record implementation wrapping a decoded field mapping.
// Typed per-endpoint records embed or replace it outside the core.
type Item struct {
	fields map[string]any
	key    string
}

// Candidate identifier fields, probed in order when no key field is named.
var defaultKeyFields = []string{"ID", "id", "assetId", "QID", "uuid", "sha", "name"}

// NewItem builds an Item from decoded fields. keyFields name the field(s)
// whose values form the identity; when empty, a default set of well-known
// identifier names is probed.
func NewItem(fields map[string]any, keyFields ...string) *Item {
	if len(keyFields) == 0 {
		keyFields = defaultKeyFields
		for _, f := range keyFields {
			if v, ok := fields[f]; ok {
				return &Item{fields: fields, key: Stringify(v)}
			}
		}
		// No identifier: fall back to the canonical serialized form so that
		// structurally equal records still collapse.
		return &Item{fields: fields, key: canonicalKey(fields)}
	}
	key := ""
	for i, f := range keyFields {
		if i > 0 {
			key += ":"
		}
		key += Stringify(fields[f])
	}
	return &Item{fields: fields, key: key}
}

// Key implements Record.
func (r *Item) Key() string { return r.key }

// ToMap implements Record. The returned map is the live field mapping.
func (r *Item) ToMap() map[string]any { return r.fields }

// Get returns the named field.
func (r *Item) Get(name string) (any, bool) {
	v, ok := r.fields[name]
	return v, ok
}

// Serializable returns the fully JSON-serializable view of the record:
// datetimes as ISO-8601 strings, IPs as strings, nested records expanded to
// maps, nested lists expanded to arrays.
func (r *Item) Serializable() map[string]any {
	out := make(map[string]any, len(r.fields))
	for k, v := range r.fields {
		out[k] = serializeValue(v)
	}
	return out
}

// String returns the canonical string form of the record.
func (r *Item) String() string {
	data, err := json.Marshal(r.Serializable())
	if err != nil {
		return fmt.Sprintf("record(%s)", r.key)
	}
	return string(data)
}

// Compare orders records by their identifier: numerically when both keys are
// integers, lexically otherwise.
func Compare(a, b Record) int {
	ka, kb := a.Key(), b.Key()
	na, errA := strconv.ParseInt(ka, 10, 64)
	nb, errB := strconv.ParseInt(kb, 10, 64)
	if errA == nil && errB == nil {
		switch {
		case na < nb:
			return -1
		case na > nb:
			return 1
		default:
			return 0
		}
	}
	switch {
	case ka < kb:
		return -1
	case ka > kb:
		return 1
	default:
		return 0
	}
}

func serializeValue(v any) any {
	switch t := v.(type) {
	case nil, string, bool, int, int32, int64, float32, float64, json.Number:
		return t
	case time.Time:
		return t.Format(time.RFC3339)
	case net.IP:
		return t.String()
	case Record:
		if it, ok := t.(*Item); ok {
			return it.Serializable()
		}
		return t.ToMap()
	case *List:
		return t.Serializable()
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = serializeValue(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = serializeValue(val)
		}
		return out
	default:
		return fmt.Sprintf("%v", t)
	}
}

// Stringify renders a field value the way it appears in an identity key.
func Stringify(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case nil:
		return ""
	case float64:
		// Decoded JSON numbers: render integral values without the fraction.
		if t == float64(int64(t)) {
			return strconv.FormatInt(int64(t), 10)
		}
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprintf("%v", t)
	}
}

func canonicalKey(fields map[string]any) string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	key := ""
	for _, k := range keys {
		key += k + "=" + Stringify(serializeValue(fields[k])) + ";"
	}
	return key
}
