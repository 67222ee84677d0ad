// ABOUTME: Structural validation of identities, contexts, and channel ids.
// ABOUTME: Runs locally on both sides of the wire, before any channel operation.

package validate

import (
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/bryangaleOF/fdc3-service/protocol"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// maxChannelIDLength bounds channel ids; the service never mints longer ones.
const maxChannelIDLength = 256

// Identity checks that an identity is structurally sound. A nil identity is
// valid: it stands for the caller's own window.
func Identity(identity *protocol.Identity) error {
	if identity == nil {
		return nil
	}
	if err := validate.Struct(identity); err != nil {
		return protocol.NewServiceError(protocol.ErrorInvalidIdentity,
			"identity must carry a non-empty uuid: %v", err)
	}
	return nil
}

// Context checks that a context payload carries a usable type tag.
func Context(ctx *protocol.Context) error {
	if ctx == nil {
		return protocol.NewServiceError(protocol.ErrorInvalidContext, "context is required")
	}
	if err := validate.Struct(ctx); err != nil {
		return protocol.NewServiceError(protocol.ErrorInvalidContext,
			"context must carry a non-empty type: %v", err)
	}
	return nil
}

// ChannelID checks that a channel id is structurally sound. Existence is the
// service's call, not ours.
func ChannelID(id protocol.ChannelID) error {
	s := string(id)
	if s == "" || len(s) > maxChannelIDLength || strings.TrimSpace(s) != s {
		return protocol.NewServiceError(protocol.ErrorInvalidChannelID,
			"channel id %q is malformed", s)
	}
	return nil
}
