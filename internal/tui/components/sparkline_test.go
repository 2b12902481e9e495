package components

import (
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/stretchr/testify/assert"
)

func TestSparkline_ScrollsAndScales(t *testing.T) {
	s := NewSparkline(3, "req/s", "", lipgloss.NewStyle())
	for _, v := range []float64{1, 2, 8, 4} {
		s.Add(v)
	}

	assert.Equal(t, []float64{2, 8, 4}, s.Data)
	assert.Equal(t, 8.0, s.Max)
	assert.Equal(t, 4.0, s.Last())

	s.Add(-3)
	assert.Equal(t, 0.0, s.Last())

	view := s.View()
	assert.True(t, strings.HasPrefix(view, "req/s"))
	assert.Contains(t, view, "█")
}

func TestSparkline_ZeroWidth(t *testing.T) {
	s := NewSparkline(0, "x", "", lipgloss.NewStyle())
	s.Add(1)
	assert.Empty(t, s.View())
}
