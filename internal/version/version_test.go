package version

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestString(t *testing.T) {
	oldV, oldC := Version, Commit
	t.Cleanup(func() { Version, Commit = oldV, oldC })
	Version, Commit = "v9.9.9", "abc123"

	s := String()
	assert.True(t, strings.HasPrefix(s, "capturerelay v9.9.9"))
	assert.Contains(t, s, "commit abc123")
}
