package domain

import "fmt"

// Timelocks holds the seven withdrawal/cancellation deadlines (in seconds,
// relative to escrow deployment) a quote commits both sides to, as one
// struct. AsSrc/AsDst project the source-side and destination-side fields;
// the fields themselves are exported and readable directly, and no read of
// either side's fields returns an error.
type Timelocks struct {
	SrcWithdrawal         uint64
	SrcPublicWithdrawal   uint64
	SrcCancellation       uint64
	SrcPublicCancellation uint64
	DstWithdrawal         uint64
	DstPublicWithdrawal   uint64
	DstCancellation       uint64
}

// SrcTimelocks is the source-side view of Timelocks.
type SrcTimelocks struct {
	Withdrawal         uint64
	PublicWithdrawal   uint64
	Cancellation       uint64
	PublicCancellation uint64
}

// DstTimelocks is the destination-side view of Timelocks.
type DstTimelocks struct {
	Withdrawal       uint64
	PublicWithdrawal uint64
	Cancellation     uint64
}

// AsSrc projects the source-side fields.
func (t Timelocks) AsSrc() SrcTimelocks {
	return SrcTimelocks{
		Withdrawal:         t.SrcWithdrawal,
		PublicWithdrawal:   t.SrcPublicWithdrawal,
		Cancellation:       t.SrcCancellation,
		PublicCancellation: t.SrcPublicCancellation,
	}
}

// AsDst projects the destination-side fields.
func (t Timelocks) AsDst() DstTimelocks {
	return DstTimelocks{
		Withdrawal:       t.DstWithdrawal,
		PublicWithdrawal: t.DstPublicWithdrawal,
		Cancellation:     t.DstCancellation,
	}
}

// ErrWrongSide describes a read of a field that belongs to the other side
// of the escrow. AsSrc and AsDst do not return it.
type ErrWrongSide struct{ Requested, Actual string }

func (e *ErrWrongSide) Error() string {
	return fmt.Sprintf("timelocks: requested %s-side field, this is a %s-side immutables value", e.Requested, e.Actual)
}

// ImmutablesSide tags which side an Immutables value was observed on.
// Timelocks carries no such tag, so reads are not checked against it.
type ImmutablesSide int

const (
	SideSrc ImmutablesSide = iota
	SideDst
)
