package collection

import (
	"fmt"
	"strings"
)

// Classification is the fixed kind of a mapped collection. It selects the
// Semantics that governs every instance of a role.
type Classification int

const (
	Bag Classification = iota
	IDBag
	Set
	SortedSet
	OrderedMap
	Array
	List
)

var classificationNames = map[Classification]string{
	Bag:        "bag",
	IDBag:      "idbag",
	Set:        "set",
	SortedSet:  "sorted_set",
	OrderedMap: "ordered_map",
	Array:      "array",
	List:       "list",
}

// String returns the lowercase name used in configuration and reports.
func (c Classification) String() string {
	if name, ok := classificationNames[c]; ok {
		return name
	}
	return fmt.Sprintf("classification(%d)", int(c))
}

// ParseClassification converts a name such as "bag" or "sorted_set" into a Classification.
func ParseClassification(name string) (Classification, error) {
	normalized := strings.ToLower(strings.TrimSpace(name))
	normalized = strings.ReplaceAll(normalized, "-", "_")
	for c, n := range classificationNames {
		if n == normalized {
			return c, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownClassification, name)
}

// IsIndexed reports whether elements are addressed by position or key
// (list, array, ordered map). Indexed classifications support row updates.
func (c Classification) IsIndexed() bool {
	switch c {
	case List, Array, OrderedMap:
		return true
	default:
		return false
	}
}

// IsBag reports whether the classification has multiset semantics.
func (c Classification) IsBag() bool {
	return c == Bag || c == IDBag
}

// IsSetLike reports whether the classification holds unique elements.
func (c Classification) IsSetLike() bool {
	return c == Set || c == SortedSet
}
