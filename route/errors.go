package route

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// Resolution failures. The messages are part of the public RPC surface.
var (
	ErrSameToken          = errors.New("L: Same tokens")
	ErrNoPoolForTokenIn   = errors.New("L: Not found pool for tokenIn")
	ErrNoPoolForTokenOut  = errors.New("L: Not found pool for tokenOut")
	ErrNoPoolForTokenIn2  = errors.New("L: Not found pool for tokenIn2")
	ErrNoPoolForTokenOut2 = errors.New("L: Not found pool for tokenOut2")
	ErrPathNotFound       = errors.New("L: Liquidation path not found")
)

// ResolveError reports why no route exists between two tokens.
type ResolveError struct {
	TokenIn  common.Address
	TokenOut common.Address
	Reason   error
}

func (e *ResolveError) Error() string {
	return fmt.Sprintf("resolve %s -> %s: %v", e.TokenIn.Hex(), e.TokenOut.Hex(), e.Reason)
}

func (e *ResolveError) Unwrap() error {
	return e.Reason
}

// Message returns the bare failure reason, or "" for a nil error and for
// errors that did not come from resolution.
func Message(err error) string {
	var re *ResolveError
	if errors.As(err, &re) && re.Reason != nil {
		return re.Reason.Error()
	}
	return ""
}
