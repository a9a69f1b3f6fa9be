package record

import (
	"iter"
	"sort"
	"sync"
)

// List is the ordered collection every listing operation returns: insertion
// order is preserved and a record whose Key is already present is silently
// rejected on Append. List is safe for concurrent appends; the shard workers
// of the concurrency engine share one List.
type List struct {
	mu    sync.Mutex
	items []Record
	seen  map[string]bool
}

// NewList builds a List from the given records, applying duplicate rejection
// in order.
func NewList(records ...Record) *List {
	l := &List{seen: make(map[string]bool)}
	for _, r := range records {
		l.Append(r)
	}
	return l
}

// Append adds r unless a record with the same Key is already present.
// It reports whether the record was added.
func (l *List) Append(r Record) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.append(r)
}

func (l *List) append(r Record) bool {
	if l.seen == nil {
		l.seen = make(map[string]bool)
	}
	if l.seen[r.Key()] {
		return false
	}
	l.seen[r.Key()] = true
	l.items = append(l.items, r)
	return true
}

// Extend appends every record from other, rejecting duplicates, and returns
// the number of records added.
func (l *List) Extend(other *List) int {
	if other == nil {
		return 0
	}
	added := 0
	for _, r := range other.Items() {
		if l.Append(r) {
			added++
		}
	}
	return added
}

// Insert places r at index i, shifting later records right. Duplicates are
// rejected the same way as Append.
func (l *List) Insert(i int, r Record) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.seen == nil {
		l.seen = make(map[string]bool)
	}
	if l.seen[r.Key()] {
		return false
	}
	if i < 0 {
		i = 0
	}
	if i > len(l.items) {
		i = len(l.items)
	}
	l.seen[r.Key()] = true
	l.items = append(l.items, nil)
	copy(l.items[i+1:], l.items[i:])
	l.items[i] = r
	return true
}

// Remove deletes the record with the given key, reporting whether it existed.
func (l *List) Remove(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.seen[key] {
		return false
	}
	delete(l.seen, key)
	for i, r := range l.items {
		if r.Key() == key {
			l.items = append(l.items[:i], l.items[i+1:]...)
			break
		}
	}
	return true
}

// Add returns a new List holding l's records followed by other's, with the
// usual duplicate rejection.
func (l *List) Add(other *List) *List {
	out := NewList()
	out.Extend(l)
	out.Extend(other)
	return out
}

// Sub returns a new List holding l's records whose keys do not appear in
// other, preserving order.
func (l *List) Sub(other *List) *List {
	out := NewList()
	for _, r := range l.Items() {
		if other == nil || !other.Contains(r.Key()) {
			out.Append(r)
		}
	}
	return out
}

// Contains reports whether a record with the given key is present.
func (l *List) Contains(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.seen[key]
}

// Get returns the record with the given key.
func (l *List) Get(key string) (Record, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.seen[key] {
		return nil, false
	}
	for _, r := range l.items {
		if r.Key() == key {
			return r, true
		}
	}
	return nil, false
}

// At returns the record at index i.
func (l *List) At(i int) Record {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.items[i]
}

// Slice returns the records in [from, to) as a new List.
func (l *List) Slice(from, to int) *List {
	l.mu.Lock()
	if from < 0 {
		from = 0
	}
	if to > len(l.items) {
		to = len(l.items)
	}
	var picked []Record
	if from < to {
		picked = append(picked, l.items[from:to]...)
	}
	l.mu.Unlock()
	return NewList(picked...)
}

// Len returns the number of records.
func (l *List) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.items)
}

// Items returns a snapshot of the records in insertion order.
func (l *List) Items() []Record {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Record(nil), l.items...)
}

// All returns an iterator over the records in insertion order.
func (l *List) All() iter.Seq[Record] {
	snapshot := l.Items()
	return func(yield func(Record) bool) {
		for _, r := range snapshot {
			if !yield(r) {
				return
			}
		}
	}
}

// SortByKey reorders the collection by record identity, numeric keys first in
// numeric order. Consumers that need global ID order after a sharded pull
// call this once on the merged collection.
func (l *List) SortByKey() {
	l.mu.Lock()
	defer l.mu.Unlock()
	sort.SliceStable(l.items, func(i, j int) bool {
		return Compare(l.items[i], l.items[j]) < 0
	})
}

// Keys returns the record keys in insertion order.
func (l *List) Keys() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	keys := make([]string, len(l.items))
	for i, r := range l.items {
		keys[i] = r.Key()
	}
	return keys
}

// Serializable returns the collection as a JSON-serializable array.
func (l *List) Serializable() []any {
	items := l.Items()
	out := make([]any, len(items))
	for i, r := range items {
		if it, ok := r.(*Item); ok {
			out[i] = it.Serializable()
		} else {
			out[i] = r.ToMap()
		}
	}
	return out
}
