package storage

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/adfharrison1/wqdb/pkg/domain"
)

func TestValuesMatch(t *testing.T) {
	tests := []struct {
		name     string
		actual   interface{}
		expected interface{}
		match    bool
	}{
		{"both nil", nil, nil, true},
		{"nil and value", nil, "x", false},
		{"same string different case", "Running", "running", true},
		{"different strings", "Running", "Failed", false},
		{"long s folds to s", "ſam", "SAM", true},
		{"sharp s folds to ss", "Straße", "STRASSE", true},
		{"int and float", 30, 30.0, true},
		{"int8 and int64", int8(3), int64(3), true},
		{"json number", json.Number("5"), 5, true},
		{"different numbers", 1, 2, false},
		{"string and number", "1", 1, false},
		{"bools", true, true, true},
		{"lists", []interface{}{"a", 1.0}, []interface{}{"a", 1.0}, true},
		{"records", map[string]interface{}{"a": 1.0}, map[string]interface{}{"a": 2.0}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.match, ValuesMatch(tt.actual, tt.expected))
		})
	}
}

func TestMatchesFilter(t *testing.T) {
	doc := domain.Document{"name": "Alice", "age": 30, "city": "New York"}

	assert.True(t, MatchesFilter(doc, nil))
	assert.True(t, MatchesFilter(doc, map[string]interface{}{"name": "alice", "age": 30.0}))
	assert.False(t, MatchesFilter(doc, map[string]interface{}{"name": "alice", "age": 31}))
	assert.False(t, MatchesFilter(doc, map[string]interface{}{"email": "a@example.com"}))
}

func TestIntersectStringSlices(t *testing.T) {
	tests := []struct {
		name     string
		input    [][]string
		expected []string
	}{
		{"no slices", nil, nil},
		{"single slice sorted", [][]string{{"3", "1", "2"}}, []string{"1", "2", "3"}},
		{"overlap", [][]string{{"1", "2", "3"}, {"2", "3", "4"}}, []string{"2", "3"}},
		{"no overlap", [][]string{{"1"}, {"2"}}, []string{}},
		{"duplicates within a slice", [][]string{{"1", "1"}, {"2"}}, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IntersectStringSlices(tt.input...))
		})
	}
}
