/*
Copyright 2025 The ScanWrite Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package utils

import (
	"container/heap"
	"sort"
)

// Heap is a priority queue over T ordered by a caller-supplied less
// function. Ordering is fully decoupled from the element payload.
// Not safe for concurrent use.
type Heap[T any] struct {
	inner heapImpl[T]
}

// NewHeap creates a Heap ordered by less; the element for which less
// holds against all others is popped first.
func NewHeap[T any](less func(a, b T) bool) *Heap[T] {
	return &Heap[T]{
		inner: heapImpl[T]{less: less},
	}
}

// Len returns the number of elements currently held.
func (h *Heap[T]) Len() int {
	return len(h.inner.items)
}

// Push adds an element.
func (h *Heap[T]) Push(v T) {
	heap.Push(&h.inner, v)
}

// Pop removes and returns the best element, or the zero value and false
// when empty.
func (h *Heap[T]) Pop() (T, bool) {
	if len(h.inner.items) == 0 {
		var zero T
		return zero, false
	}

	v, ok := heap.Pop(&h.inner).(T)
	return v, ok
}

// NSmallest returns up to n elements in best-first order without
// modifying the heap.
func (h *Heap[T]) NSmallest(n int) []T {
	items := make([]T, len(h.inner.items))
	copy(items, h.inner.items)
	sort.Slice(items, func(i, j int) bool {
		return h.inner.less(items[i], items[j])
	})

	if len(items) > n {
		items = items[:n]
	}

	return items
}

// Rebuild replaces the heap contents with the given elements.
func (h *Heap[T]) Rebuild(items []T) {
	h.inner.items = items
	heap.Init(&h.inner)
}

// heapImpl adapts a slice and a less function to heap.Interface.
type heapImpl[T any] struct {
	items []T
	less  func(a, b T) bool
}

func (h heapImpl[T]) Len() int            { return len(h.items) }
func (h heapImpl[T]) Less(i, j int) bool  { return h.less(h.items[i], h.items[j]) }
func (h heapImpl[T]) Swap(i, j int)       { h.items[i], h.items[j] = h.items[j], h.items[i] }
func (h *heapImpl[T]) Push(x any)         { h.items = append(h.items, x.(T)) }

func (h *heapImpl[T]) Pop() any {
	old := h.items
	n := len(old)
	x := old[n-1]
	h.items = old[:n-1]
	return x
}
