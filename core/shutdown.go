package core

import (
	"context"
)

// ShutdownFunc is the signature for cleanup handlers run during graceful shutdown.
// The context carries the remaining shutdown deadline. Implementations should
// return promptly once it is done and must be safe to call more than once.
//
//	var storeShutdown ShutdownFunc = func(ctx context.Context) error {
//	    return database.Close()
//	}
type ShutdownFunc func(ctx context.Context) error
