package storage

import (
	"reflect"
	"sort"

	"github.com/adfharrison1/wqdb/pkg/domain"
	"github.com/adfharrison1/wqdb/pkg/indexing"
)

// MatchesFilter checks if a document matches the given filter criteria
func MatchesFilter(doc domain.Document, filter map[string]interface{}) bool {
	for field, expectedValue := range filter {
		actualValue, exists := doc[field]
		if !exists {
			return false // Field doesn't exist in document
		}

		if !ValuesMatch(actualValue, expectedValue) {
			return false // Values don't match
		}
	}
	return true // All filter criteria match
}

// ValuesMatch compares two values for equality, handling different types
func ValuesMatch(actual, expected interface{}) bool {
	// Handle nil values
	if actual == nil && expected == nil {
		return true
	}
	if actual == nil || expected == nil {
		return false
	}

	// Strings compare case-insensitively, folded the same way as index keys
	if actualStr, ok1 := actual.(string); ok1 {
		if expectedStr, ok2 := expected.(string); ok2 {
			return indexing.FoldString(actualStr) == indexing.FoldString(expectedStr)
		}
	}

	// Handle numeric comparison
	if actualNum, ok1 := domain.ToFloat64(actual); ok1 {
		if expectedNum, ok2 := domain.ToFloat64(expected); ok2 {
			return actualNum == expectedNum
		}
	}

	// Records and lists compare structurally
	return reflect.DeepEqual(actual, expected)
}

// IntersectStringSlices returns the sorted intersection of multiple string
// slices. This is used for index intersection in multi-field queries
func IntersectStringSlices(slices ...[]string) []string {
	if len(slices) == 0 {
		return nil
	}

	// Create a map to track which slices each ID appears in
	countMap := make(map[string]int)
	for _, slice := range slices {
		seen := make(map[string]bool, len(slice))
		for _, id := range slice {
			if !seen[id] {
				seen[id] = true
				countMap[id]++
			}
		}
	}

	// Keep IDs that appear in all slices
	result := []string{}
	for id, count := range countMap {
		if count == len(slices) {
			result = append(result, id)
		}
	}
	sort.Strings(result)

	return result
}
