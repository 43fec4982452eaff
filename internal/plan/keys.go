// SPDX-License-Identifier: MIT

package plan

import (
	"cmp"
	"slices"
)

// sortedKeys returns the map's keys in ascending order. All map iteration in
// this package goes through it so output never depends on hash order.
func sortedKeys[K cmp.Ordered, V any](m map[K]V) []K {
	keys := make([]K, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
