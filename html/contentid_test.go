package html

import (
	"reflect"
	"testing"
)

func TestContentIDRefs(t *testing.T) {
	testCases := []struct {
		description string
		body        string
		expected    []string
	}{
		{
			description: "no references",
			body:        `<html><body><p>hi</p><img src="https://example.com/a.png"></body></html>`,
			expected:    nil,
		},
		{
			description: "image reference",
			body:        `<p>logo</p><img src="cid:logo">`,
			expected:    []string{"logo"},
		},
		{
			description: "duplicates are reported once in document order",
			body: `<img src="cid:b"><a href="cid:a">file</a><img src="cid:b">
<table background="cid:bg"></table>`,
			expected: []string{"b", "a", "bg"},
		},
		{
			description: "percent-encoded id",
			body:        `<img src="cid:part1%40example.com">`,
			expected:    []string{"part1@example.com"},
		},
		{
			description: "empty id is ignored",
			body:        `<img src="cid:">`,
			expected:    nil,
		},
		{
			description: "body fragment without html element",
			body:        `<b>hi</b>`,
			expected:    nil,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.description, func(t *testing.T) {
			ids, err := ContentIDRefs(tc.body)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !reflect.DeepEqual(ids, tc.expected) {
				t.Errorf("expected %v but got %v", tc.expected, ids)
			}
		})
	}
}
