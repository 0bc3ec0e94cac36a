package port

import "context"

// Mail captures the body of an outbound message. The engine only ever needs
// "send this token or link to this address"; delivery is an external concern.
type Mail struct {
	To      string
	Subject string
	Heading string
	Body    string
	Link    string
}

// MailSender delivers mail. Implementations must not roll back engine state
// on failure; send errors are reported to the caller and nothing more.
type MailSender interface {
	Send(ctx context.Context, mail Mail) error
}
