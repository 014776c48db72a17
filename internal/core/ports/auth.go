package ports

import (
	"context"

	"github.com/atvirokodosprendimai/libraryapi/internal/core/domain"
)

// TokenVerifier validates a bearer credential. Errors wrapping
// domain.ErrUnauthenticated mean the credential itself was rejected;
// any other error is an infrastructure failure.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (domain.Principal, error)
}
