// ABOUTME: Tests for structural validation of identities, contexts, and channel ids.
// ABOUTME: Validation failures must carry the matching wire error code.

package validate

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/bryangaleOF/fdc3-service/protocol"
)

func TestIdentity(t *testing.T) {
	assert.NoError(t, Identity(nil), "nil identity means the caller's own window")
	assert.NoError(t, Identity(&protocol.Identity{UUID: "app1", Name: "win1"}))
	assert.NoError(t, Identity(&protocol.Identity{UUID: "app1"}))

	err := Identity(&protocol.Identity{Name: "win1"})
	assert.True(t, protocol.HasCode(err, protocol.ErrorInvalidIdentity))

	err = Identity(&protocol.Identity{UUID: strings.Repeat("x", 257)})
	assert.True(t, protocol.HasCode(err, protocol.ErrorInvalidIdentity))
}

func TestContext(t *testing.T) {
	assert.NoError(t, Context(&protocol.Context{Type: "fdc3.instrument"}))

	err := Context(nil)
	assert.True(t, protocol.HasCode(err, protocol.ErrorInvalidContext))

	err = Context(&protocol.Context{Name: "untyped"})
	assert.True(t, protocol.HasCode(err, protocol.ErrorInvalidContext))
}

func TestChannelID(t *testing.T) {
	assert.NoError(t, ChannelID("red"))
	assert.NoError(t, ChannelID(protocol.DefaultChannelID))

	for _, bad := range []string{"", " red", "red ", strings.Repeat("c", 257)} {
		err := ChannelID(protocol.ChannelID(bad))
		assert.True(t, protocol.HasCode(err, protocol.ErrorInvalidChannelID), "id %q", bad)
	}
}
