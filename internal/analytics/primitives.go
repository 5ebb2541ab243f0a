// Package analytics computes the clinic dashboard views. Every function is a
// pure transformation of an immutable dataset: nothing here mutates input,
// keeps state between calls, or returns an error for bad data.
package analytics

import (
	"math"
	"strings"
)

// All selects every value of a filter dimension.
const All = "All"

// FallbackBucket names the group for records with an empty grouping key.
const FallbackBucket = "Altro"

// Point is one named value of a chart series.
type Point struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

func Sum[T any](items []T, field func(*T) float64) float64 {
	var total float64
	for i := range items {
		total += field(&items[i])
	}
	return total
}

func Count[T any](items []T) int {
	return len(items)
}

func CountWhere[T any](items []T, pred func(*T) bool) int {
	n := 0
	for i := range items {
		if pred(&items[i]) {
			n++
		}
	}
	return n
}

// Ratio returns num/den as a percentage rounded to one decimal. A zero
// denominator yields 0.
func Ratio(num, den float64) float64 {
	if den == 0 {
		return 0
	}
	return Round1(num / den * 100)
}

// SafeDiv returns num/den, or 0 when den is 0.
func SafeDiv(num, den float64) float64 {
	if den == 0 {
		return 0
	}
	return num / den
}

func Round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// BucketKey maps empty grouping keys to the fallback bucket.
func BucketKey(key string) string {
	if strings.TrimSpace(key) == "" {
		return FallbackBucket
	}
	return key
}

// GroupCount counts items per key. Points come out in first-seen key order.
func GroupCount[T any](items []T, key func(*T) string) []Point {
	return GroupSum(items, key, func(*T) float64 { return 1 })
}

// GroupSum sums value per key. Points come out in first-seen key order.
func GroupSum[T any](items []T, key func(*T) string, value func(*T) float64) []Point {
	out := []Point{}
	pos := map[string]int{}
	for i := range items {
		k := BucketKey(key(&items[i]))
		idx, ok := pos[k]
		if !ok {
			idx = len(out)
			pos[k] = idx
			out = append(out, Point{Name: k})
		}
		out[idx].Value += value(&items[i])
	}
	return out
}

// filter returns a new slice with the items keep accepts, in input order.
func filter[T any](items []T, keep func(*T) bool) []T {
	out := make([]T, 0, len(items))
	for i := range items {
		if keep(&items[i]) {
			out = append(out, items[i])
		}
	}
	return out
}
