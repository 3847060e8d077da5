package domain

type CheckoutState string

const (
	CheckoutIdle                 CheckoutState = "IDLE"
	CheckoutIntentRequested      CheckoutState = "INTENT_REQUESTED"
	CheckoutAwaitingConfirmation CheckoutState = "AWAITING_CONFIRMATION"
	CheckoutReconciling          CheckoutState = "RECONCILING"
	CheckoutCompleted            CheckoutState = "COMPLETED"
	CheckoutFailed               CheckoutState = "FAILED"
)

var checkoutTransitions = map[CheckoutState][]CheckoutState{
	CheckoutIdle:                 {CheckoutIntentRequested},
	CheckoutIntentRequested:      {CheckoutAwaitingConfirmation, CheckoutFailed, CheckoutIdle},
	CheckoutAwaitingConfirmation: {CheckoutReconciling, CheckoutIdle},
	CheckoutReconciling:          {CheckoutCompleted, CheckoutFailed},
	CheckoutCompleted:            {CheckoutIdle},
	CheckoutFailed:               {CheckoutIdle},
}

// CanTransitionTo reports whether the checkout state machine allows from -> to.
func CanTransitionTo(from, to CheckoutState) bool {
	for _, next := range checkoutTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

func (s CheckoutState) IsTerminal() bool {
	return s == CheckoutCompleted || s == CheckoutFailed
}

// InFlight is true while an intent is being created, confirmed or reconciled.
func (s CheckoutState) InFlight() bool {
	return s == CheckoutIntentRequested || s == CheckoutAwaitingConfirmation || s == CheckoutReconciling
}

// String representation (for logging)
func (s CheckoutState) String() string {
	return string(s)
}
