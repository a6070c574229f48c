package pqueue

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type entry struct {
	name  string
	prior float64
}

func TestQueuePush(t *testing.T) {
	tests := []struct {
		name     string
		opts     []Option
		input    []entry
		expected []interface{}
	}{
		{
			name:     "asc",
			input:    []entry{{"c", 3}, {"a", 1}, {"b", 2}},
			expected: []interface{}{"a", "b", "c"},
		},
		{
			name:     "desc",
			opts:     []Option{WithOrderDesc()},
			input:    []entry{{"c", 3}, {"a", 1}, {"b", 2}},
			expected: []interface{}{"c", "b", "a"},
		},
		{
			name:     "desc_cap",
			opts:     []Option{WithOrderDesc(), WithCap(2)},
			input:    []entry{{"a", 1}, {"e", 5}, {"c", 3}, {"d", 4}},
			expected: []interface{}{"e", "d"},
		},
		{
			name:     "ties_keep_insertion_order",
			opts:     []Option{WithOrderDesc()},
			input:    []entry{{"f0", 0}, {"f1", 0}, {"f2", 1}, {"f3", 0}, {"f4", 0}},
			expected: []interface{}{"f2", "f0", "f1", "f3", "f4"},
		},
		{
			name:     "ties_at_cap",
			opts:     []Option{WithCap(2)},
			input:    []entry{{"x", 1}, {"y", 1}, {"z", 1}},
			expected: []interface{}{"x", "y"},
		},
		{
			name:     "zero_cap",
			opts:     []Option{WithCap(0)},
			input:    []entry{{"x", 1}},
			expected: []interface{}{},
		},
		{
			name:     "empty",
			expected: []interface{}{},
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			q := New(tc.opts...)
			for _, e := range tc.input {
				q.Push(e.name, e.prior)
			}
			assert.Equal(t, tc.expected, q.PopAll())
			assert.Equal(t, 0, q.Len())
		})
	}
}
