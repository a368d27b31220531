package util

import (
	"regexp"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var copyIDPattern = regexp.MustCompile(`^KND-\d{6}$`)

func TestNewCopyID_Format(t *testing.T) {
	for i := 0; i < 1000; i++ {
		id := NewCopyID()
		require.Regexp(t, copyIDPattern, id)

		n, err := strconv.Atoi(strings.TrimPrefix(id, CopyIDPrefix))
		require.NoError(t, err)
		assert.GreaterOrEqual(t, n, 100000)
		assert.LessOrEqual(t, n, 999999)
	}
}

func TestNewToken_Distinct(t *testing.T) {
	seen := make(map[string]struct{}, 500)
	for i := 0; i < 500; i++ {
		tok := NewToken()
		require.NotEmpty(t, tok)
		require.Regexp(t, `^[0-9a-z]+$`, tok)

		_, dup := seen[tok]
		require.False(t, dup, "token %q generated twice", tok)
		seen[tok] = struct{}{}
	}
}

func TestNew_ULID(t *testing.T) {
	a, b := New(), New()
	assert.Len(t, a, 26)
	assert.NotEqual(t, a, b)
}
