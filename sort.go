package mortontable

import (
	"runtime"

	"golang.org/x/sync/errgroup"
)

// sortSpawnMin is the smallest partition worth handing to another goroutine.
const sortSpawnMin = 1 << 12

// sortByKeys sorts keys ascending, applying the same permutation to positions
// and values so the three slices stay aligned. Large partitions are sorted in
// parallel.
func sortByKeys[V any](keys []Key, positions []Point, values []V) {
	eg := new(errgroup.Group)
	eg.SetLimit(runtime.GOMAXPROCS(0))
	quicksortByKeys(eg, keys, positions, values)
	_ = eg.Wait()
}

func quicksortByKeys[V any](eg *errgroup.Group, keys []Key, positions []Point, values []V) {
	for len(keys) > 1 {
		p := partitionByKeys(keys, positions, values)
		loK, loP, loV := keys[:p], positions[:p], values[:p]
		keys, positions, values = keys[p+1:], positions[p+1:], values[p+1:]
		// recurse into the smaller half, iterate on the larger
		if len(loK) > len(keys) {
			loK, keys = keys, loK
			loP, positions = positions, loP
			loV, values = values, loV
		}
		if len(loK) >= sortSpawnMin && eg.TryGo(func() error {
			quicksortByKeys(eg, loK, loP, loV)
			return nil
		}) {
			continue
		}
		quicksortByKeys(eg, loK, loP, loV)
	}
}

// partitionByKeys partitions the slices around a median-of-three pivot and
// returns its final index.
func partitionByKeys[V any](keys []Key, positions []Point, values []V) int {
	swap := func(i, j int) {
		keys[i], keys[j] = keys[j], keys[i]
		positions[i], positions[j] = positions[j], positions[i]
		values[i], values[j] = values[j], values[i]
	}

	lim := len(keys) - 1
	first, median, last := 0, len(keys)/2, lim
	if keys[last] < keys[median] {
		median, last = last, median
	}
	if keys[last] < keys[first] {
		last, first = first, last
	}
	if keys[median] < keys[first] {
		median, first = first, median
	}
	pivot := keys[median]

	swap(median, lim)
	i := 0
	for j := 0; j < lim; j++ {
		if keys[j] < pivot {
			swap(i, j)
			i++
		}
	}
	swap(i, lim)
	return i
}
