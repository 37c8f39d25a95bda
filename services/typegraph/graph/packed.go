// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package graph

import (
	"fmt"
	"strconv"
	"strings"
)

// Category is a dependency category counted inside a Packed weight.
//
// Categories are ordered by significance: a single Hierarchy reference
// outweighs any number of Field, Method or Expression references.
type Category int

const (
	// CategoryExpression counts references from expressions (field and method
	// access, multi-dimensional array creation).
	CategoryExpression Category = iota

	// CategoryMethod counts references from method signatures, thrown
	// exceptions, local variable signatures and type instructions (new,
	// anewarray, checkcast, instanceof, class literals).
	CategoryMethod

	// CategoryField counts references from field types.
	CategoryField

	// CategoryHierarchy counts super class and interface references.
	CategoryHierarchy

	// NumCategories is the total number of categories (for array sizing).
	NumCategories
)

const (
	// CategoryBits is the width of each category's bit range.
	CategoryBits = 8

	// CategoryMax is the largest count a category can hold.
	CategoryMax = 1<<CategoryBits - 1
)

var categoryLetters = [NumCategories]string{
	CategoryExpression: "E",
	CategoryMethod:     "M",
	CategoryField:      "F",
	CategoryHierarchy:  "H",
}

var categoryNames = [NumCategories]string{
	CategoryExpression: "expression",
	CategoryMethod:     "method",
	CategoryField:      "field",
	CategoryHierarchy:  "hierarchy",
}

// String returns the lower-case name of the category.
func (c Category) String() string {
	if c < 0 || c >= NumCategories {
		return "unknown"
	}
	return categoryNames[c]
}

// Counts holds one count per category, indexed by Category.
type Counts [NumCategories]int

// Packed combines one small counter per Category into a single 32-bit value,
// each counter in its own disjoint 8-bit range.
//
// Packing then unpacking recovers every count below CategoryMax+1, and
// Add is category-wise, so Pack(a).Add(Pack(b)) == Pack(a+b) whenever no
// category overflows. Add saturates at CategoryMax instead of carrying into
// the next category.
type Packed uint32

func shift(c Category) uint { return uint(c) * CategoryBits }

// Of returns a Packed holding n in category c and zero elsewhere.
// Counts above CategoryMax are clamped.
func Of(c Category, n int) Packed {
	return Packed(uint32(clamp(n)) << shift(c))
}

// Pack encodes counts. It returns ErrCountOverflow when any count is
// negative or larger than CategoryMax.
func Pack(counts Counts) (Packed, error) {
	var p Packed
	for c, n := range counts {
		if n < 0 || n > CategoryMax {
			return 0, fmt.Errorf("%w: %s=%d", ErrCountOverflow, Category(c), n)
		}
		p |= Packed(uint32(n) << shift(Category(c)))
	}
	return p, nil
}

// Unpack decodes every category count.
func (p Packed) Unpack() Counts {
	var counts Counts
	for c := range counts {
		counts[c] = p.Count(Category(c))
	}
	return counts
}

// Count returns the count of a single category.
func (p Packed) Count(c Category) int {
	return int(uint32(p) >> shift(c) & CategoryMax)
}

// Add sums p and q category-wise, saturating each category at CategoryMax.
func (p Packed) Add(q Packed) Packed {
	var sum Packed
	for c := Category(0); c < NumCategories; c++ {
		sum |= Of(c, p.Count(c)+q.Count(c))
	}
	return sum
}

// String renders the non-zero categories from most to least significant,
// e.g. "H2 F1 E5". A zero value renders as "0".
func (p Packed) String() string {
	if p == 0 {
		return "0"
	}
	var parts []string
	for c := NumCategories - 1; c >= 0; c-- {
		if n := p.Count(c); n > 0 {
			parts = append(parts, categoryLetters[c]+strconv.Itoa(n))
		}
	}
	return strings.Join(parts, " ")
}

// SumPacked is a MergeFunc for graphs whose edge weights are Packed values.
func SumPacked(current, added int64) int64 {
	return int64(Packed(uint32(current)).Add(Packed(uint32(added))))
}

func clamp(n int) int {
	switch {
	case n < 0:
		return 0
	case n > CategoryMax:
		return CategoryMax
	default:
		return n
	}
}
