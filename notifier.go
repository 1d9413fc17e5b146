package registration

import "context"

// NotificationDispatcher delivers a verification code over the purpose's
// channel. Dispatch is fire-and-forget: handlers invoke it in a goroutine
// after the issuing transaction commits and never observe the outcome, so an
// implementation must not assume its result affects the request.
type NotificationDispatcher interface {
	Dispatch(ctx context.Context, user *User, purpose VerificationPurpose, code int)
}

type logDispatcher struct {
	logger Logger
}

// NewLogDispatcher returns a dispatcher that only logs the delivery, the
// stand-in used until a real SMS/email gateway is wired by the host.
func NewLogDispatcher(logger Logger) NotificationDispatcher {
	if logger == nil {
		logger = defLogger{}
	}
	return logDispatcher{logger: logger}
}

func (d logDispatcher) Dispatch(_ context.Context, user *User, purpose VerificationPurpose, code int) {
	switch purpose {
	case PurposeEmail:
		d.logger.Info("sending email verification code to %s", user.Email)
	case PurposeSMS:
		d.logger.Info("sending sms verification code to %s", user.PhoneNumber)
	default:
		d.logger.Warn("unknown verification purpose: %s", purpose)
		return
	}
	d.logger.Debug("verification code %d ready for delivery", code)
}

type noopDispatcher struct{}

func (noopDispatcher) Dispatch(context.Context, *User, VerificationPurpose, int) {}

func normalizeDispatcher(d NotificationDispatcher) NotificationDispatcher {
	if d == nil {
		return noopDispatcher{}
	}
	return d
}
