// Package domain contains pure, dependency-free domain models and types
// for the self-consistency engine.
package domain

import (
	"fmt"
	"maps"
	"reflect"
	"slices"
)

// Key represents a type-safe generic key for accessing values in State.
// The type parameter T ensures compile-time type safety when getting and
// setting values.
type Key[T any] struct{ name string }

// NewKey creates a new Key with the specified name and type.
func NewKey[T any](name string) Key[T] { return Key[T]{name: name} }

// Name returns the key's string name.
func (k Key[T]) Name() string { return k.name }

// Predefined state keys used while a task moves through the execution graph.
var (
	// KeyTask stores the task being solved.
	KeyTask = Key[Task]{"task"}

	// KeyPaths stores the reasoning paths produced for the task.
	KeyPaths = Key[[]ReasoningPath]{"paths"}

	// KeyAggregation stores the consensus result.
	KeyAggregation = Key[AggregationResult]{"aggregation"}

	// KeyConsistency stores the consistency report for the paths.
	KeyConsistency = Key[ConsistencyReport]{"consistency"}

	// KeyTreeQuality stores the tree quality summary for the paths.
	KeyTreeQuality = Key[TreeQuality]{"tree_quality"}

	// KeyGrade stores the grade given to the consensus answer.
	KeyGrade = Key[Grade]{"grade"}

	// KeyGraphID stores the identifier of the graph being executed.
	KeyGraphID = Key[string]{"execution.graph_id"}

	// KeyExecutionID stores a unique identifier for this execution.
	KeyExecutionID = Key[string]{"execution.execution_id"}
)

// deepCopyValue copies slices, maps and pointers so that values read from
// or written to a State cannot be mutated through aliases. Structs are
// copied field by field; unexported fields keep their shallow value.
func deepCopyValue(value any) any {
	if value == nil {
		return nil
	}

	// Scalars and string slices are the common cases and need no reflection.
	switch v := value.(type) {
	case string, bool, int, int64, float64:
		return v
	case []string:
		return slices.Clone(v)
	}

	v := reflect.ValueOf(value)
	switch v.Kind() {
	case reflect.Slice:
		if v.IsNil() {
			return value
		}
		out := reflect.MakeSlice(v.Type(), v.Len(), v.Len())
		for i := 0; i < v.Len(); i++ {
			out.Index(i).Set(copyInto(v.Index(i)))
		}
		return out.Interface()

	case reflect.Map:
		if v.IsNil() {
			return value
		}
		out := reflect.MakeMapWithSize(v.Type(), v.Len())
		iter := v.MapRange()
		for iter.Next() {
			out.SetMapIndex(iter.Key(), copyInto(iter.Value()))
		}
		return out.Interface()

	case reflect.Ptr:
		if v.IsNil() {
			return value
		}
		out := reflect.New(v.Elem().Type())
		out.Elem().Set(copyInto(v.Elem()))
		return out.Interface()

	case reflect.Struct:
		out := reflect.New(v.Type()).Elem()
		out.Set(v)
		for i := 0; i < v.NumField(); i++ {
			if out.Field(i).CanSet() {
				out.Field(i).Set(copyInto(v.Field(i)))
			}
		}
		return out.Interface()

	default:
		return value
	}
}

// copyInto deep copies v and returns a value assignable to v's type,
// including interface-typed fields and nil values.
func copyInto(v reflect.Value) reflect.Value {
	if (v.Kind() == reflect.Interface || v.Kind() == reflect.Ptr ||
		v.Kind() == reflect.Slice || v.Kind() == reflect.Map) && v.IsNil() {
		return reflect.Zero(v.Type())
	}
	if !v.CanInterface() {
		return v
	}
	copied := reflect.ValueOf(deepCopyValue(v.Interface()))
	if v.Kind() == reflect.Interface {
		out := reflect.New(v.Type()).Elem()
		out.Set(copied)
		return out
	}
	return copied
}

// State is an immutable collection of task data that flows through the
// execution graph. Every write returns a new State (copy-on-write), so a
// State can be shared freely between goroutines.
type State struct {
	data map[string]any
}

// NewState creates a new empty State.
func NewState() State {
	return State{data: make(map[string]any)}
}

// Get retrieves a deep copy of the value stored under key.
// It returns false when the key is missing or holds a different type.
//
// Example:
//
//	paths, ok := Get(state, KeyPaths)
//	if !ok {
//	    // handle missing value
//	}
func Get[T any](s State, key Key[T]) (T, bool) {
	var zero T
	value, exists := s.data[key.name]
	if !exists {
		return zero, false
	}

	val, ok := deepCopyValue(value).(T)
	return val, ok
}

// GetRaw retrieves a value by its string key.
// For type safety, use the generic Get function instead.
func (s State) GetRaw(keyName string) (any, bool) {
	value, exists := s.data[keyName]
	if !exists {
		return nil, false
	}
	return deepCopyValue(value), true
}

// With returns a new State with key set to value. The receiver is left
// unchanged.
//
// Example:
//
//	next := With(state, KeyTask, Task{ID: "t1", Problem: "2+2?"})
func With[T any](s State, key Key[T], value T) State {
	newData := maps.Clone(s.data)
	if newData == nil {
		newData = make(map[string]any)
	}
	newData[key.name] = deepCopyValue(value)
	return State{data: newData}
}

// WithMultiple returns a new State with all updates applied in a single
// clone.
func (s State) WithMultiple(updates map[string]any) State {
	newData := maps.Clone(s.data)
	if newData == nil {
		newData = make(map[string]any, len(updates))
	}
	for k, v := range updates {
		newData[k] = deepCopyValue(v)
	}
	return State{data: newData}
}

// Keys returns all keys present in the State in sorted order.
func (s State) Keys() []string {
	keys := slices.Collect(maps.Keys(s.data))
	slices.Sort(keys)
	return keys
}

// Diff returns the entries of s that are absent from base or were replaced
// by a different value. It is used to merge the outputs of parallel units.
func (s State) Diff(base State) map[string]any {
	changed := make(map[string]any)
	for k, v := range s.data {
		old, ok := base.data[k]
		if !ok || !reflect.DeepEqual(old, v) {
			changed[k] = v
		}
	}
	return changed
}

// String returns a string representation of the State for debugging.
func (s State) String() string {
	return fmt.Sprintf("State%v", s.data)
}

// ExecutionContext contains metadata about the current graph execution.
type ExecutionContext struct {
	GraphID     string
	ExecutionID string
}

// WithExecutionContext returns a new State carrying the execution metadata.
func (s State) WithExecutionContext(ctx ExecutionContext) State {
	return s.WithMultiple(map[string]any{
		KeyGraphID.name:     ctx.GraphID,
		KeyExecutionID.name: ctx.ExecutionID,
	})
}

// GetExecutionContext extracts execution metadata from the State.
// It returns false if any field is missing.
func (s State) GetExecutionContext() (ExecutionContext, bool) {
	graphID, ok1 := Get(s, KeyGraphID)
	executionID, ok2 := Get(s, KeyExecutionID)
	if !ok1 || !ok2 {
		return ExecutionContext{}, false
	}
	return ExecutionContext{GraphID: graphID, ExecutionID: executionID}, true
}
