package fracindex

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyBetween(t *testing.T) {
	tests := []struct {
		a, b string
		want string
	}{
		{"", "", "a0"},
		{"", "a0", "Zz"},
		{"", "Zz", "Zy"},
		{"a0", "", "a1"},
		{"a1", "", "a2"},
		{"a0", "a1", "a0V"},
		{"a1", "a2", "a1V"},
		{"a0V", "a1", "a0l"},
		{"Zz", "a0", "ZzV"},
		{"Zz", "a1", "a0"},
		{"", "Y00", "Xzzz"},
		{"bzz", "", "c000"},
		{"a0", "a0V", "a0G"},
		{"a0", "a0G", "a08"},
		{"b125", "b129", "b127"},
		{"a0", "a1V", "a1"},
		{"Zz", "a01", "a0"},
		{"", "a0V", "a0"},
		{"", "b999", "b99"},
		{"", "A000000000000000000000000001", "A000000000000000000000000000V"},
		{"zzzzzzzzzzzzzzzzzzzzzzzzzzy", "", "zzzzzzzzzzzzzzzzzzzzzzzzzzz"},
		{"zzzzzzzzzzzzzzzzzzzzzzzzzzz", "", "zzzzzzzzzzzzzzzzzzzzzzzzzzzV"},
	}
	for _, tt := range tests {
		t.Run(tt.a+"_"+tt.b, func(t *testing.T) {
			got, err := KeyBetween(tt.a, tt.b)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestKeyBetweenErrors(t *testing.T) {
	tests := []struct {
		name string
		a, b string
	}{
		{"smallest integer", "", "A00000000000000000000000000"},
		{"trailing zero", "a00", ""},
		{"trailing zero upper", "a0", "a10"},
		{"equal", "a0", "a0"},
		{"reversed", "a1", "a0"},
		{"bad head", "0", ""},
		{"short integer", "b1", ""},
		{"bad digit", "a-", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := KeyBetween(tt.a, tt.b)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidKey)
		})
	}
}

func TestKeyBetweenRepeatedInsertBefore(t *testing.T) {
	hi := "a0"
	for i := range 200 {
		k, err := KeyBetween("", hi)
		require.NoError(t, err, "iteration %d", i)
		require.Less(t, k, hi)
		hi = k
	}
}

func TestKeyBetweenRepeatedBisect(t *testing.T) {
	lo, hi := "a0", "a1"
	for i := range 100 {
		k, err := KeyBetween(lo, hi)
		require.NoError(t, err, "iteration %d", i)
		require.Less(t, lo, k)
		require.Less(t, k, hi)
		if i%2 == 0 {
			hi = k
		} else {
			lo = k
		}
	}
}

func TestValidate(t *testing.T) {
	assert.NoError(t, Validate("a0"))
	assert.NoError(t, Validate("Zz"))
	assert.NoError(t, Validate("a0V"))
	assert.Error(t, Validate(""))
	assert.Error(t, Validate("a"))
	assert.Error(t, Validate("a0V0"))
	assert.Error(t, Validate("A"+strings.Repeat("0", 26)))
	assert.ErrorIs(t, Validate("a-"), ErrInvalidKey)
}
