package shelltypes

import "context"

// CleanupAction is a teardown step. The context expires when the cleanup
// run exceeds its timeout.
type CleanupAction func(ctx context.Context) error

// CleanupHandle removes a single registration. Unregister is idempotent.
type CleanupHandle interface {
	Unregister()
}

// CleanupRegistrar accepts cleanup registrations.
type CleanupRegistrar interface {
	RegisterCleanup(name string, action CleanupAction) CleanupHandle
	RegisterCleanupFunc(name string, fn func()) CleanupHandle
}
