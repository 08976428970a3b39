package ledger

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/redis/go-redis/v9"
)

var (
	ErrInvalidArgument  = errors.New("invalid argument")
	ErrStoreUnavailable = errors.New("store unavailable")
	ErrProtocol         = errors.New("unexpected store response")

	// ErrAccountNotInitialized is reported together with ErrProtocol when the
	// account was charged before it was ever reset.
	ErrAccountNotInitialized = errors.New("account balance not initialized")
)

// Server replies that mean the store could not serve the command right now,
// as opposed to replies that reject the command itself.
var unavailablePrefixes = []string{"LOADING", "READONLY", "MASTERDOWN", "TRYAGAIN", "CLUSTERDOWN", "BUSY"}

// classify wraps a go-redis failure into ErrStoreUnavailable or ErrProtocol
// while keeping the original cause matchable. A socket timeout that fires
// after the caller's context ended also carries ctx.Err(), so a timed out
// call matches context.DeadlineExceeded whichever deadline tripped first.
func classify(ctx context.Context, op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%s: %w: %w", op, ErrStoreUnavailable, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		if ctxErr := ctx.Err(); netErr.Timeout() && ctxErr != nil {
			return fmt.Errorf("%s: %w: %w: %w", op, ErrStoreUnavailable, ctxErr, err)
		}
		return fmt.Errorf("%s: %w: %w", op, ErrStoreUnavailable, err)
	}
	var redisErr redis.Error
	if errors.As(err, &redisErr) {
		for _, prefix := range unavailablePrefixes {
			if strings.HasPrefix(err.Error(), prefix) {
				return fmt.Errorf("%s: %w: %w", op, ErrStoreUnavailable, err)
			}
		}
		return fmt.Errorf("%s: %w: %w", op, ErrProtocol, err)
	}
	return fmt.Errorf("%s: %w: %w", op, ErrStoreUnavailable, err)
}

// isNoScript reports whether the server no longer knows the script by its hash.
func isNoScript(err error) bool {
	var redisErr redis.Error
	return errors.As(err, &redisErr) && strings.HasPrefix(redisErr.Error(), "NOSCRIPT")
}
