package domain

import "context"

// Checker performs one login attempt. Implementations never return an
// error: every failure is folded into the Outcome.
type Checker interface {
	Check(ctx context.Context, acct Account) Outcome
}

// Sink delivers one text message to an external messaging endpoint.
type Sink interface {
	Name() string
	Send(ctx context.Context, text string) error
}
