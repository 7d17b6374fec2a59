package types

// MergeState is the reconciliation state machine position.
// idle -> merging -> merged | failed; failed -> merging on the next trigger.
type MergeState int

// Merge states.
const (
	MergeIdle MergeState = iota
	MergeMerging
	MergeMerged
	MergeFailed
)

func (s MergeState) String() string {
	switch s {
	case MergeIdle:
		return "idle"
	case MergeMerging:
		return "merging"
	case MergeMerged:
		return "merged"
	case MergeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Trigger names the entry point that asked for a merge.
type Trigger string

// Merge triggers.
const (
	TriggerAuthChange Trigger = "auth-change" // session went from guest to user
	TriggerAuthMount  Trigger = "auth-mount"  // startup with an existing session
	TriggerHeader     Trigger = "header"
	TriggerCartPage   Trigger = "cart-page"
	TriggerManual     Trigger = "manual"
)
