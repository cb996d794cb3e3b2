package checkout

// State is one stage of the checkout saga. Transitions only move forward;
// the failure edges from the first three states carry no durable side
// effects, while the edge out of PersistingOrder passes through
// CompensatingInventory because stock was already decremented.
type State string

const (
	StateNotStarted            State = "NOT_STARTED"
	StateValidatingCustomer    State = "VALIDATING_CUSTOMER"
	StateValidatingInventory   State = "VALIDATING_INVENTORY"
	StateAwaitingPayment       State = "AWAITING_PAYMENT"
	StateCommittingInventory   State = "COMMITTING_INVENTORY"
	StatePersistingOrder       State = "PERSISTING_ORDER"
	StateCompensatingInventory State = "COMPENSATING_INVENTORY"
	StateCompleted             State = "COMPLETED"
	StateFailed                State = "FAILED"
)

var transitions = map[State][]State{
	StateNotStarted:            {StateValidatingCustomer},
	StateValidatingCustomer:    {StateValidatingInventory, StateFailed},
	StateValidatingInventory:   {StateAwaitingPayment, StateFailed},
	StateAwaitingPayment:       {StateCommittingInventory, StateFailed},
	StateCommittingInventory:   {StatePersistingOrder, StateFailed},
	StatePersistingOrder:       {StateCompleted, StateCompensatingInventory},
	StateCompensatingInventory: {StateFailed},
	StateCompleted:             {},
	StateFailed:                {},
}

// CanTransitionTo reports whether moving from s to next is a legal edge.
func (s State) CanTransitionTo(next State) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the saga has finished, one way or the other.
func (s State) IsTerminal() bool {
	return len(transitions[s]) == 0
}
