package entity

import (
	"cmp"
	"slices"
	"time"
)

// MaxCandidates caps how many live challenges one guess is evaluated
// against; older ones are left untouched and expire on their own.
const MaxCandidates = 16

// VerifyStatus is the outcome class of one verification attempt.
type VerifyStatus int8

const (
	VerifyNoActive VerifyStatus = iota
	VerifyMatched
	VerifyMismatch
	VerifyExhausted
)

func (v VerifyStatus) String() string {
	switch v {
	case VerifyMatched:
		return "matched"
	case VerifyMismatch:
		return "mismatch"
	case VerifyExhausted:
		return "exhausted"
	default:
		return "no_active"
	}
}

// VerifyAttempt is what a store needs to settle one Verify in a single
// atomic unit.
type VerifyAttempt struct {
	Email   string
	Purpose Purpose
	Now     time.Time
	// Match compares a stored digest with the submitted code in constant time.
	Match func(codeHash string) bool
	// Session is stored when a candidate matches. Email and Purpose are
	// filled from the attempt.
	Session Session
}

// VerifyDecision is the pure result of evaluating an attempt against the
// candidates read under lock.
type VerifyDecision struct {
	Status    VerifyStatus
	MatchedID int64
	// Bumped holds the challenges whose attempts grow by one.
	Bumped []Challenge
	// Remaining is set for VerifyMismatch.
	Remaining int32
}

// VerifyResult is what a store reports after committing a decision.
type VerifyResult struct {
	Decision VerifyDecision
	Session  *Session
}

// SortCandidates orders challenges newest first, breaking created_at ties
// on the larger id.
func SortCandidates(cs []Challenge) {
	slices.SortFunc(cs, func(a, b Challenge) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	})
}

// DecideVerify evaluates a guess against every live candidate. Every digest
// is compared so the timing does not reveal which position matched; the
// newest match wins. Without a match each live candidate is charged one
// attempt.
func DecideVerify(candidates []Challenge, now time.Time, match func(codeHash string) bool) VerifyDecision {
	live := make([]Challenge, 0, len(candidates))
	for _, c := range candidates {
		if c.IsLive(now) {
			live = append(live, c)
		}
	}
	if len(live) == 0 {
		return VerifyDecision{Status: VerifyNoActive}
	}
	SortCandidates(live)
	if len(live) > MaxCandidates {
		live = live[:MaxCandidates]
	}

	var matched int64
	for _, c := range live {
		if match(c.CodeHash) && matched == 0 {
			matched = c.ID
		}
	}
	if matched != 0 {
		return VerifyDecision{Status: VerifyMatched, MatchedID: matched}
	}

	out := VerifyDecision{Status: VerifyExhausted, Bumped: make([]Challenge, 0, len(live))}
	for _, c := range live {
		c.Attempts++
		out.Bumped = append(out.Bumped, c)
		if out.Status == VerifyExhausted && !c.IsTerminal() {
			out.Status = VerifyMismatch
			out.Remaining = c.Remaining()
		}
	}

	return out
}
