package ruleengine

import (
	"fmt"
)

// Facts is the set of named objects visible to one evaluation cycle.
// It is not safe for concurrent use.
type Facts struct {
	values map[string]any
	keys   []string
}

func NewFacts() *Facts {
	return &Facts{
		values: make(map[string]any),
	}
}

func (f *Facts) Put(key string, value any) error {
	if _, exists := f.values[key]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateFact, key)
	}

	f.values[key] = value
	f.keys = append(f.keys, key)

	return nil
}

func (f *Facts) Get(key string) (any, error) {
	value, exists := f.values[key]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrFactNotFound, key)
	}
	return value, nil
}

// Values returns the registered objects in registration order.
func (f *Facts) Values() []any {
	result := make([]any, 0, len(f.keys))
	for _, key := range f.keys {
		result = append(result, f.values[key])
	}
	return result
}

func (f *Facts) Keys() []string {
	return append([]string(nil), f.keys...)
}

func (f *Facts) Len() int {
	return len(f.keys)
}

// FactAs fetches key and asserts it to T.
func FactAs[T any](f *Facts, key string) (T, error) {
	var zero T

	value, err := f.Get(key)
	if err != nil {
		return zero, err
	}

	typed, ok := value.(T)
	if !ok {
		return zero, fmt.Errorf("%w: %s is %T", ErrFactType, key, value)
	}
	return typed, nil
}
