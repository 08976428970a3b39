package infrastructure

import "context"

// Server is anything App runs: transports and background workers.
type Server interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}
