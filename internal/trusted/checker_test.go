package trusted

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestIsTrusted(t *testing.T) {
	c := NewChecker([]string{"Example.com", "  corp.example  "}, zap.NewNop())

	assert.True(t, c.IsTrusted("alice@example.com"))
	assert.True(t, c.IsTrusted("bob@EXAMPLE.COM"))
	assert.True(t, c.IsTrusted("carol@corp.example"))
	assert.False(t, c.IsTrusted("mallory@shop.example"))
	assert.False(t, c.IsTrusted("not-an-address"))
	assert.False(t, c.IsTrusted(""))
}

func TestEmptyListTrustsNobody(t *testing.T) {
	c := NewChecker(nil, zap.NewNop())
	assert.False(t, c.IsTrusted("alice@example.com"))
}

func TestBlankEntriesAreDropped(t *testing.T) {
	c := NewChecker([]string{"", "  "}, zap.NewNop())
	assert.False(t, c.IsTrusted("alice@"))
	assert.False(t, c.IsTrusted("alice@example.com"))
}
