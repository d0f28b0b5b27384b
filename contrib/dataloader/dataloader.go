// Package dataloader provides the generic batching helpers the engine uses
// to load relations of many records with one statement per relation
// instead of one per record.
//
// # Basic Usage
//
// Collect the join keys of the parent records, fetch the related rows with
// a single IN query, then hand every parent the rows sharing its key:
//
//	keys := dataloader.UniqueKeys(parents, func(r Record) any { return r["id"] })
//	rows, err := fetchWhereIn("student_id", keys)
//	if err != nil {
//		return err
//	}
//	groups := dataloader.GroupByKey(rows, func(r Record) any { return r["studentId"] })
//	for i, fees := range dataloader.OrderGroupsByKeys(parentKeys, groups) {
//		parents[i]["fees"] = fees
//	}
package dataloader

import (
	"errors"
)

// ErrNotFound is returned when a key has no value in a batch result.
var ErrNotFound = errors.New("dataloader: entity not found")

// KeyFunc extracts a key from a value.
type KeyFunc[K comparable, V any] func(V) K

// OrderByKeys reorders values to match the order of keys. Keys without a
// value get the zero value and ErrNotFound.
func OrderByKeys[K comparable, V any](keys []K, values []V, keyFn KeyFunc[K, V]) ([]V, []error) {
	lookup := IndexByKey(values, keyFn)
	result := make([]V, len(keys))
	errs := make([]error, len(keys))
	for i, key := range keys {
		if v, ok := lookup[key]; ok {
			result[i] = v
		} else {
			errs[i] = ErrNotFound
		}
	}
	return result, errs
}

// IndexByKey maps every value by its key. When keys repeat, the last
// value wins.
func IndexByKey[K comparable, V any](values []V, keyFn KeyFunc[K, V]) map[K]V {
	index := make(map[K]V, len(values))
	for _, v := range values {
		index[keyFn(v)] = v
	}
	return index
}

// GroupByKey groups values by key, keeping their relative order.
//
//	fees := ...
//	grouped := GroupByKey(fees, func(f Record) any { return f["studentId"] })
//	// grouped[studentID] contains the fees of that student
func GroupByKey[K comparable, V any](values []V, keyFn KeyFunc[K, V]) map[K][]V {
	result := make(map[K][]V)
	for _, v := range values {
		key := keyFn(v)
		result[key] = append(result[key], v)
	}
	return result
}

// OrderGroupsByKeys returns the group of every key, in key order. Keys
// without values get an empty, non-nil group.
func OrderGroupsByKeys[K comparable, V any](keys []K, groups map[K][]V) [][]V {
	result := make([][]V, len(keys))
	for i, key := range keys {
		if g, ok := groups[key]; ok {
			result[i] = g
		} else {
			result[i] = []V{}
		}
	}
	return result
}

// UniqueKeys returns the distinct keys of values in first-seen order.
// Values whose key is the zero value are skipped.
func UniqueKeys[K comparable, V any](values []V, keyFn KeyFunc[K, V]) []K {
	var (
		zero K
		keys = make([]K, 0, len(values))
		seen = make(map[K]struct{}, len(values))
	)
	for _, v := range values {
		key := keyFn(v)
		if key == zero {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		keys = append(keys, key)
	}
	return keys
}

// Chunk splits values into consecutive batches of at most size elements.
// A non-positive size returns a single batch.
func Chunk[V any](values []V, size int) [][]V {
	if len(values) == 0 {
		return nil
	}
	if size <= 0 || size >= len(values) {
		return [][]V{values}
	}
	chunks := make([][]V, 0, (len(values)+size-1)/size)
	for size < len(values) {
		values, chunks = values[size:], append(chunks, values[:size:size])
	}
	return append(chunks, values)
}
