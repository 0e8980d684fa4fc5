// Package objid defines the object identifier shared by the catalogue, the
// review store and the data-directory scanner. IDs are integers whenever the
// source allows it and fall back to strings otherwise.
package objid

import (
	"cmp"
	"slices"
	"strconv"
	"strings"
)

// ID identifies one astronomical object. The zero value is the empty string ID.
type ID struct {
	str   string
	num   int64
	isInt bool
}

// Int returns an integer ID.
func Int(n int64) ID {
	return ID{str: strconv.FormatInt(n, 10), num: n, isInt: true}
}

// String returns a string ID. Use Parse to get int-first behaviour.
func String(s string) ID {
	return ID{str: s}
}

// Parse returns an integer ID when s is a base-10 integer and a string ID otherwise.
func Parse(s string) ID {
	s = strings.TrimSpace(s)
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return Int(n)
	}
	return String(s)
}

// ParseAll converts raw values with the int-first policy: every value becomes
// an integer ID when all of them parse as integers, otherwise all of them
// stay strings.
func ParseAll(raw []string) []ID {
	ids := make([]ID, len(raw))
	allInt := true
	nums := make([]int64, len(raw))
	for i, s := range raw {
		n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
		if err != nil {
			allInt = false
			break
		}
		nums[i] = n
	}
	for i, s := range raw {
		if allInt {
			ids[i] = Int(nums[i])
		} else {
			ids[i] = String(s)
		}
	}
	return ids
}

// IsInt reports whether the ID is numeric.
func (id ID) IsInt() bool { return id.isInt }

// Int64 returns the numeric value. It is zero for string IDs.
func (id ID) Int64() int64 { return id.num }

// String returns the textual form used in filenames and files on disk.
func (id ID) String() string { return id.str }

// Equal reports whether two IDs denote the same object.
func (id ID) Equal(other ID) bool {
	return id.isInt == other.isInt && id.str == other.str
}

// Compare orders integer IDs numerically before string IDs, which are
// ordered lexicographically.
func Compare(a, b ID) int {
	switch {
	case a.isInt && b.isInt:
		return cmp.Compare(a.num, b.num)
	case a.isInt:
		return -1
	case b.isInt:
		return 1
	}
	return strings.Compare(a.str, b.str)
}

// SortUnique sorts ids and removes duplicates in place, returning the
// shortened slice.
func SortUnique(ids []ID) []ID {
	slices.SortFunc(ids, Compare)
	return slices.CompactFunc(ids, ID.Equal)
}

// Key is a possibly composite object key: the first component matches the
// `id` column and the rest match `id2`, `id3`, ... in order.
type Key []ID

// String joins the components with commas, e.g. "12" or "12,3".
func (k Key) String() string {
	parts := make([]string, len(k))
	for i, id := range k {
		parts[i] = id.String()
	}
	return strings.Join(parts, ",")
}

// ParseKey splits a comma-separated key and parses each component.
func ParseKey(s string) Key {
	var k Key
	for _, part := range strings.Split(s, ",") {
		k = append(k, Parse(part))
	}
	return k
}
