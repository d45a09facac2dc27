package services

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitize_TrailingCommas(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"object", `{"a":1,}`, `{"a":1}`},
		{"array", `[1,2,3,]`, `[1,2,3]`},
		{"nested", `{"a":[1,{"b":2,},],}`, `{"a":[1,{"b":2}]}`},
		{"multi-line", "{\n  \"items\": [\n    \"x\",\n  ],\n}", "{\n  \"items\": [\n    \"x\"\n  ]\n}"},
		{"comma inside string kept", `{"a":"1,]",}`, `{"a":"1,]"}`},
		{"escaped quote in string", `{"a":"say \",}\"",}`, `{"a":"say \",}\""}`},
		{"clean input unchanged", `{"a":[1,2],"b":"c"}`, `{"a":[1,2],"b":"c"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Sanitize(tt.in))
		})
	}
}

func TestSanitize_ResultParsesLikeCleanJSON(t *testing.T) {
	dirty := "{\n \"title\": \"Quiz\",\n \"items\": [\n  {\"title\": \"Q1\", \"options\": [\"a\", \"b\",],},\n ],\n}"
	clean := `{"title":"Quiz","items":[{"title":"Q1","options":["a","b"]}]}`

	var got, want any
	require.NoError(t, json.Unmarshal([]byte(Sanitize(dirty)), &got))
	require.NoError(t, json.Unmarshal([]byte(clean), &want))
	assert.Equal(t, want, got)
}

func TestSanitize_Fences(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"json tag", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"no tag", "```\n[1,2]\n```", `[1,2]`},
		{"surrounding whitespace", "  \n```json\n{\"a\":1}\n```\n\n", `{"a":1}`},
		{"fence with trailing comma", "```json\n{\"a\":1,}\n```", `{"a":1}`},
		{"unfenced passes through", "{\"a\":\"```\"}", "{\"a\":\"```\"}"},
		{"fence inside a string value", "```json\n{\"a\":\"use ``` fences\"}\n```", "{\"a\":\"use ``` fences\"}"},
		{"text before fence is not a single block", "Here you go:\n```json\n{}\n```", "Here you go:\n```json\n{}\n```"},
		{"two blocks left alone", "```\n{}\n```\n```\n[]\n```", "```\n{}\n```\n```\n[]\n```"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Sanitize(tt.in))
		})
	}
}

func TestSanitize_InteriorKeptVerbatim(t *testing.T) {
	interior := "{\n  \"title\": \"Quiz\",\n  \"description\": \"d\"\n}"
	assert.Equal(t, interior, Sanitize("```json\n"+interior+"\n```"))
}
