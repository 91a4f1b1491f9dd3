package dblist

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseClass(t *testing.T) {
	for in, want := range map[string]Class{
		"RNA":       ClassRNA,
		"dna":       ClassDNA,
		" Protein ": ClassProtein,
	} {
		got, err := ParseClass(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseClass("lipid")
	assert.ErrorContains(t, err, "lipid")
}

func TestClassSet(t *testing.T) {
	s := NewClassSet(ClassProtein, ClassRNA, ClassRNA)
	assert.Equal(t, 2, s.Len())
	assert.True(t, s.Contains(ClassRNA))
	assert.False(t, s.Contains(ClassDNA))
	assert.Equal(t, []Class{ClassRNA, ClassProtein}, s.Classes())
	assert.Equal(t, "{RNA,PROTEIN}", s.String())

	assert.Equal(t, 0, NewClassSet().Len())
	assert.Equal(t, []Class{ClassRNA, ClassDNA, ClassProtein}, AllClasses().Classes())
}

func TestClassSet_NilAllowsAll(t *testing.T) {
	var s *ClassSet
	assert.True(t, s.Contains(ClassDNA))
	assert.Equal(t, 3, s.Len())
	assert.Equal(t, "{RNA,DNA,PROTEIN}", s.String())
}

func TestClass_String(t *testing.T) {
	assert.Equal(t, "DNA", ClassDNA.String())
	assert.Equal(t, "Class(9)", Class(9).String())
}
