package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConflictGraphSharedStudents(t *testing.T) {
	graph := buildConflictGraph(map[string][]string{
		"math":    {"s1", "s2"},
		"physics": {"s2", "s3"},
		"history": {"s4"},
	})

	assert.True(t, graph.adjacent("math", "physics"))
	assert.True(t, graph.adjacent("physics", "math"))
	assert.False(t, graph.adjacent("math", "history"))
	assert.False(t, graph.adjacent("math", "math"))

	assert.Equal(t, 1, graph.degree("math"))
	assert.Equal(t, 1, graph.degree("physics"))
	assert.Equal(t, 0, graph.degree("history"))
}

func TestConflictGraphTriangle(t *testing.T) {
	graph := buildConflictGraph(map[string][]string{
		"a": {"s1", "s2"},
		"b": {"s2", "s3"},
		"c": {"s3", "s1"},
	})

	assert.Equal(t, 2, graph.degree("a"))
	assert.Equal(t, 2, graph.degree("b"))
	assert.Equal(t, 2, graph.degree("c"))
}

func TestConflictGraphUnknownCourse(t *testing.T) {
	graph := buildConflictGraph(map[string][]string{"a": {"s1"}})

	assert.False(t, graph.adjacent("a", "ghost"))
	assert.Equal(t, 0, graph.degree("ghost"))
}
