package port

import "context"

// MessagingChannel delivers short out-of-band messages (one-time codes) to a
// destination address or phone number. Implementations must report dispatch
// failures; the caller decides whether to roll back stored state.
type MessagingChannel interface {
	Send(ctx context.Context, destination, body string) error
}

// Mailer sends transactional email such as password-reset codes.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}
