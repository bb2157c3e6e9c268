/*
action.go - Lifecycle actions, execution ranks and the case state machine

PURPOSE:
  Defines the closed set of lifecycle actions a case can undergo, the
  fixed execution rank of each action, and the state machine that
  decides which actions are legal in which state.

EXECUTION RANK:
  Every action carries a fixed rank used as the primary tie-break when
  several actions are scheduled for the same date. Interest must always
  be calculated before a same-day payment is applied: computing the
  payment's interest component against a stale accrual balance would
  produce the wrong split.

STATE MACHINE:
  CREATED  -> OPEN
  PENDING  -> DENY, APPROVE
  APPROVED -> DISBURSE, CLOSE
  ACTIVE   -> CLOSE, ACCEPT_PAYMENT, MARK_LATE, APPLY_INTEREST,
              DISBURSE, WRITE_OFF
  CLOSED   -> (terminal)

SEE ALSO:
  - schedule.go: Uses ranks to order same-day scheduled charges
  - payment.go: One builder variant per action
*/
package portfolio

import "sort"

// =============================================================================
// ACTION - Named lifecycle event
// =============================================================================

type Action string

const (
	ActionOpen          Action = "OPEN"
	ActionDeny          Action = "DENY"
	ActionImport        Action = "IMPORT"
	ActionApprove       Action = "APPROVE"
	ActionDisburse      Action = "DISBURSE"
	ActionApplyInterest Action = "APPLY_INTEREST"
	ActionAcceptPayment Action = "ACCEPT_PAYMENT"
	ActionMarkLate      Action = "MARK_LATE"
	ActionMarkInArrears Action = "MARK_IN_ARREARS"
	ActionWriteOff      Action = "WRITE_OFF"
	ActionRecover       Action = "RECOVER"
	ActionClose         Action = "CLOSE"
)

// actionRanks fixes the execution order of same-day actions. Lower runs
// first. The gaps matter: interest application precedes payment
// acceptance, which precedes lateness handling and terminal actions.
var actionRanks = map[Action]int{
	ActionOpen:          0,
	ActionDeny:          0,
	ActionImport:        0,
	ActionApprove:       1,
	ActionDisburse:      2,
	ActionApplyInterest: 3,
	ActionAcceptPayment: 4,
	ActionMarkLate:      5,
	ActionMarkInArrears: 5,
	ActionWriteOff:      5,
	ActionClose:         5,
	ActionRecover:       5,
}

// Rank returns the action's fixed execution rank. Unknown actions sort last.
func (a Action) Rank() int {
	if r, ok := actionRanks[a]; ok {
		return r
	}
	return len(actionRanks)
}

// Actions returns all known actions in a stable order.
func Actions() []Action {
	out := make([]Action, 0, len(actionRanks))
	for a := range actionRanks {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Rank() != out[j].Rank() {
			return out[i].Rank() < out[j].Rank()
		}
		return out[i] < out[j]
	})
	return out
}

// =============================================================================
// STATE - Case lifecycle state
// =============================================================================

type State string

const (
	StateCreated  State = "CREATED"
	StatePending  State = "PENDING"
	StateApproved State = "APPROVED"
	StateActive   State = "ACTIVE"
	StateClosed   State = "CLOSED"
)

// nextActions is the transition table: state -> legal actions.
// CLOSED is terminal and maps to the empty set.
var nextActions = map[State][]Action{
	StateCreated:  {ActionOpen},
	StatePending:  {ActionDeny, ActionApprove},
	StateApproved: {ActionDisburse, ActionClose},
	StateActive:   {ActionClose, ActionAcceptPayment, ActionMarkLate, ActionApplyInterest, ActionDisburse, ActionWriteOff},
	StateClosed:   {},
}

// actionTargets maps each action to the state a case lands in afterwards.
var actionTargets = map[Action]State{
	ActionOpen:          StatePending,
	ActionDeny:          StateClosed,
	ActionApprove:       StateApproved,
	ActionDisburse:      StateActive,
	ActionApplyInterest: StateActive,
	ActionAcceptPayment: StateActive,
	ActionMarkLate:      StateActive,
	ActionWriteOff:      StateClosed,
	ActionClose:         StateClosed,
}

// NextActionsForState returns the set of actions legal in the given state.
// The returned slice is a copy; callers may mutate it freely.
func NextActionsForState(s State) []Action {
	legal := nextActions[s]
	out := make([]Action, len(legal))
	copy(out, legal)
	return out
}

// Permits reports whether the action is legal in this state.
func (s State) Permits(a Action) bool {
	for _, legal := range nextActions[s] {
		if legal == a {
			return true
		}
	}
	return false
}

// Transition validates the action against the current state and returns
// the resulting state. An illegal action fails with InvalidTransitionError.
func Transition(s State, a Action) (State, error) {
	if !s.Permits(a) {
		return s, &InvalidTransitionError{State: s, Action: a}
	}
	target, ok := actionTargets[a]
	if !ok {
		return s, &InvalidTransitionError{State: s, Action: a}
	}
	return target, nil
}
