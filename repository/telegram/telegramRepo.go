package telegramrepo

import "context"

// Repo delivers fire-and-forget notification messages. Callers log failures
// and never abort their own work because of one.
type Repo interface {
	Send(ctx context.Context, text string) error
}
