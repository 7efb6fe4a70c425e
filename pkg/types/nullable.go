package types

import (
	"bytes"
	"encoding/json"
)

// Nullable tracks whether a JSON field was present, and if so whether it was
// null. It lets PATCH-style bodies tell "leave alone" from "clear".
type Nullable[T any] struct {
	Set   bool
	Value *T
}

func (n *Nullable[T]) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil
	}
	n.Set = true
	if bytes.Equal(trimmed, []byte("null")) {
		n.Value = nil
		return nil
	}
	var parsed T
	if err := json.Unmarshal(trimmed, &parsed); err != nil {
		return err
	}
	n.Value = &parsed
	return nil
}

func (n Nullable[T]) MarshalJSON() ([]byte, error) {
	if n.Value == nil {
		return []byte("null"), nil
	}
	return json.Marshal(*n.Value)
}

// IsNull reports an explicit null.
func (n Nullable[T]) IsNull() bool {
	return n.Set && n.Value == nil
}

// Some builds a present, non-null value.
func Some[T any](v T) Nullable[T] {
	return Nullable[T]{Set: true, Value: &v}
}

// Null builds a present, explicit null.
func Null[T any]() Nullable[T] {
	return Nullable[T]{Set: true}
}
