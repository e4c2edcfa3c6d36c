// Copyright 2025 Tom Barlow
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package executor

import (
	"slices"
	"sort"

	stepwiseerrors "github.com/tombee/stepwise/pkg/errors"
)

var registry = map[string]Algorithm{
	"bubble": {
		Name:        "bubble",
		Description: "Bubble sort: repeatedly swap adjacent out-of-order pairs",
		Locals:      []string{"i", "j"},
		Body:        BubbleSort,
	},
	"selection": {
		Name:        "selection",
		Description: "Selection sort: move the smallest remaining element into place",
		Locals:      []string{"i", "j", "min"},
		Body:        SelectionSort,
	},
	"insertion": {
		Name:        "insertion",
		Description: "Insertion sort: sink each element into the sorted prefix",
		Locals:      []string{"i", "j"},
		Body:        InsertionSort,
	},
	"merge": {
		Name:        "merge",
		Description: "Merge sort: split, sort halves, merge through a buffer",
		Locals:      []string{"lo", "mid", "hi"},
		Body:        MergeSort,
	},
	"quick": {
		Name:        "quick",
		Description: "Quick sort: Lomuto partition around the last element",
		Locals:      []string{"lo", "hi", "pivot"},
		Body:        QuickSort,
	},
	"heap": {
		Name:        "heap",
		Description: "Heap sort: build a max-heap, then repeatedly extract the root",
		Locals:      []string{"end", "root"},
		Body:        HeapSort,
	},
}

// Lookup returns the built-in algorithm with the given name.
func Lookup(name string) (Algorithm, error) {
	algo, ok := registry[name]
	if !ok {
		return Algorithm{}, &stepwiseerrors.NotFoundError{Resource: "algorithm", ID: name}
	}
	return algo, nil
}

// Names returns the names of the built-in algorithms in sorted order.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Algorithms returns the built-in algorithms sorted by name.
func Algorithms() []Algorithm {
	names := Names()
	algos := make([]Algorithm, 0, len(names))
	for _, name := range names {
		a := registry[name]
		a.Locals = slices.Clone(a.Locals)
		algos = append(algos, a)
	}
	return algos
}

// BubbleSort sorts ascending, stopping early after a pass with no swaps.
func BubbleSort(ops *Ops) error {
	n := ops.Len()
	for i := 0; i < n-1; i++ {
		ops.Track("i", i)
		swapped := false
		for j := 0; j < n-1-i; j++ {
			ops.Track("j", j)
			if ops.Compare(j, j+1) > 0 {
				ops.Swap(j, j+1)
				swapped = true
			}
		}
		if !swapped {
			break
		}
	}
	return nil
}

// SelectionSort sorts ascending with at most n-1 swaps.
func SelectionSort(ops *Ops) error {
	n := ops.Len()
	for i := 0; i < n-1; i++ {
		ops.Track("i", i)
		low := i
		ops.Track("min", low)
		for j := i + 1; j < n; j++ {
			ops.Track("j", j)
			if ops.Less(j, low) {
				low = j
				ops.Track("min", low)
			}
		}
		if low != i {
			ops.Swap(i, low)
		}
	}
	return nil
}

// InsertionSort sorts ascending by adjacent swaps into the sorted prefix.
func InsertionSort(ops *Ops) error {
	n := ops.Len()
	for i := 1; i < n; i++ {
		ops.Track("i", i)
		for j := i; j > 0; j-- {
			ops.Track("j", j)
			if !ops.Less(j, j-1) {
				break
			}
			ops.Swap(j, j-1)
		}
	}
	return nil
}

// MergeSort is a top-down merge sort. Elements are read into a buffer and
// written back with Set.
func MergeSort(ops *Ops) error {
	n := ops.Len()
	buf := make([]int, n)

	var sortRange func(lo, hi int)
	sortRange = func(lo, hi int) {
		if lo >= hi {
			return
		}
		ops.Enter("mergeSort", 1, map[string]any{"lo": lo, "hi": hi})
		mid := lo + (hi-lo)/2
		ops.Track("lo", lo)
		ops.Track("mid", mid)
		ops.Track("hi", hi)
		sortRange(lo, mid)
		sortRange(mid+1, hi)

		ops.Track("lo", lo)
		ops.Track("mid", mid)
		ops.Track("hi", hi)
		for k := lo; k <= hi; k++ {
			buf[k] = ops.Get(k)
		}
		i, j := lo, mid+1
		for k := lo; k <= hi; k++ {
			switch {
			case i > mid:
				ops.Set(k, buf[j])
				j++
			case j > hi:
				ops.Set(k, buf[i])
				i++
			case ops.CompareValues(buf[j], buf[i], j, i) < 0:
				ops.Set(k, buf[j])
				j++
			default:
				ops.Set(k, buf[i])
				i++
			}
		}
		ops.Leave()
	}

	sortRange(0, n-1)
	return nil
}

// QuickSort uses the Lomuto partition scheme with the last element as
// pivot.
func QuickSort(ops *Ops) error {
	partition := func(lo, hi int) int {
		ops.Track("pivot", hi)
		i := lo
		for j := lo; j < hi; j++ {
			if ops.Less(j, hi) {
				if i != j {
					ops.Swap(i, j)
				}
				i++
			}
		}
		if i != hi {
			ops.Swap(i, hi)
		}
		return i
	}

	var sortRange func(lo, hi int)
	sortRange = func(lo, hi int) {
		if lo >= hi {
			return
		}
		ops.Enter("quickSort", 1, map[string]any{"lo": lo, "hi": hi})
		ops.Track("lo", lo)
		ops.Track("hi", hi)
		p := partition(lo, hi)
		sortRange(lo, p-1)
		sortRange(p+1, hi)
		ops.Leave()
	}

	sortRange(0, ops.Len()-1)
	return nil
}

// HeapSort builds a max-heap in place and then extracts the root n-1 times.
func HeapSort(ops *Ops) error {
	n := ops.Len()

	siftDown := func(root, end int) {
		for {
			ops.Track("root", root)
			child := 2*root + 1
			if child >= end {
				return
			}
			if child+1 < end && ops.Less(child, child+1) {
				child++
			}
			if !ops.Less(root, child) {
				return
			}
			ops.Swap(root, child)
			root = child
		}
	}

	ops.Track("end", n)
	for i := n/2 - 1; i >= 0; i-- {
		siftDown(i, n)
	}
	for end := n - 1; end > 0; end-- {
		ops.Track("end", end)
		ops.Swap(0, end)
		siftDown(0, end)
	}
	return nil
}
