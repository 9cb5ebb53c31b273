// Package docstore is a small document-database abstraction: named collections of
// schemaless records with ordered full scans and atomic field operations.
package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

// ErrNotFound is returned when a document does not exist.
var ErrNotFound = errors.New("document not found")

// Data is the field map of a document.
type Data map[string]any

// Document is a stored record together with its store-assigned id.
type Document struct {
	ID   string `json:"id"`
	Data Data   `json:"data"`
}

// Query describes a full collection scan. An empty OrderBy keeps insertion order.
type Query struct {
	OrderBy    string
	Descending bool
}

// Store is the document database client used by the repositories.
type Store interface {
	Add(ctx context.Context, collection string, data Data) (string, error)
	Get(ctx context.Context, collection, id string) (Document, error)
	List(ctx context.Context, collection string, q Query) ([]Document, error)
	// Update applies all ops to one document in a single atomic step.
	Update(ctx context.Context, collection, id string, ops ...FieldOp) error
	// Delete removes a document. Deleting a missing document is not an error.
	Delete(ctx context.Context, collection, id string) error
}

type serverTimestamp struct{}

// ServerTimestamp is replaced by the store clock when written.
var ServerTimestamp = serverTimestamp{}

// Sub returns the path of a sub-collection nested under a document.
func Sub(collection, id, name string) string {
	return strings.Join([]string{collection, id, name}, "/")
}

type opKind int

const (
	opSet opKind = iota
	opIncrement
	opArrayUnion
	opArrayRemove
)

// FieldOp is a single field mutation applied by Store.Update.
type FieldOp struct {
	Field  string
	kind   opKind
	value  any
	delta  int64
	floor  *int64
	values []any
}

// Set overwrites a field.
func Set(field string, v any) FieldOp {
	return FieldOp{Field: field, kind: opSet, value: v}
}

// Increment adds delta to a numeric field. A missing field counts as zero.
func Increment(field string, delta int64) FieldOp {
	return FieldOp{Field: field, kind: opIncrement, delta: delta}
}

// IncrementFloor is Increment clamped so the result never drops below floor.
func IncrementFloor(field string, delta, floor int64) FieldOp {
	return FieldOp{Field: field, kind: opIncrement, delta: delta, floor: &floor}
}

// ArrayUnion adds each value not already present in the array field.
func ArrayUnion(field string, values ...any) FieldOp {
	return FieldOp{Field: field, kind: opArrayUnion, values: values}
}

// ArrayRemove removes every occurrence of the values from the array field.
func ArrayRemove(field string, values ...any) FieldOp {
	return FieldOp{Field: field, kind: opArrayRemove, values: values}
}

func (op FieldOp) String() string {
	switch op.kind {
	case opIncrement:
		if op.floor != nil {
			return fmt.Sprintf("%s+=%d(>=%d)", op.Field, op.delta, *op.floor)
		}
		return fmt.Sprintf("%s+=%d", op.Field, op.delta)
	case opArrayUnion:
		return fmt.Sprintf("%s∪%v", op.Field, op.values)
	case opArrayRemove:
		return fmt.Sprintf("%s∖%v", op.Field, op.values)
	default:
		return fmt.Sprintf("%s=%v", op.Field, op.value)
	}
}

// resolve replaces ServerTimestamp sentinels with now.
func resolve(data Data, now time.Time) Data {
	out := make(Data, len(data))
	for k, v := range data {
		if _, ok := v.(serverTimestamp); ok {
			out[k] = now
			continue
		}
		out[k] = v
	}
	return out
}

// applyOps returns a copy of data with ops applied in order.
func applyOps(data Data, ops []FieldOp, now time.Time) Data {
	out := make(Data, len(data)+len(ops))
	for k, v := range data {
		out[k] = v
	}
	for _, op := range ops {
		switch op.kind {
		case opSet:
			if _, ok := op.value.(serverTimestamp); ok {
				out[op.Field] = now
			} else {
				out[op.Field] = op.value
			}
		case opIncrement:
			n, _ := toInt64(out[op.Field])
			n += op.delta
			if op.floor != nil && n < *op.floor {
				n = *op.floor
			}
			out[op.Field] = n
		case opArrayUnion:
			arr := toSlice(out[op.Field])
			for _, v := range op.values {
				if !containsValue(arr, v) {
					arr = append(arr, v)
				}
			}
			out[op.Field] = arr
		case opArrayRemove:
			arr := toSlice(out[op.Field])
			kept := make([]any, 0, len(arr))
			for _, v := range arr {
				if !containsValue(op.values, v) {
					kept = append(kept, v)
				}
			}
			out[op.Field] = kept
		}
	}
	return out
}

// normalize round-trips data through JSON so every store hands out the same value
// types (float64 numbers, RFC 3339 strings for times, []any arrays) and no caller
// shares memory with the store.
func normalize(data Data) (Data, error) {
	b, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	var out Data
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	if out == nil {
		out = Data{}
	}
	return out, nil
}

// sortDocuments orders docs (given oldest-inserted first) by q. Ties keep
// insertion order ascending and reverse insertion order descending.
func sortDocuments(docs []Document, q Query) {
	if q.OrderBy == "" {
		return
	}
	if q.Descending {
		for i, j := 0, len(docs)-1; i < j; i, j = i+1, j-1 {
			docs[i], docs[j] = docs[j], docs[i]
		}
	}
	sort.SliceStable(docs, func(i, j int) bool {
		c := compareValues(docs[i].Data[q.OrderBy], docs[j].Data[q.OrderBy])
		if q.Descending {
			return c > 0
		}
		return c < 0
	})
}

func compareValues(a, b any) int {
	if ta, ok := toTime(a); ok {
		if tb, ok := toTime(b); ok {
			return ta.Compare(tb)
		}
	}
	if na, ok := toFloat(a); ok {
		if nb, ok := toFloat(b); ok {
			switch {
			case na < nb:
				return -1
			case na > nb:
				return 1
			}
			return 0
		}
	}
	// missing values sort first
	if a == nil || b == nil {
		switch {
		case a == nil && b == nil:
			return 0
		case a == nil:
			return -1
		}
		return 1
	}
	return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
}

func containsValue(arr []any, v any) bool {
	for _, it := range arr {
		if it == v {
			return true
		}
	}
	return false
}
