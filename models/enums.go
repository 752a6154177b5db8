package models

type PeriodStatus string

const (
	PeriodStatusDraft        PeriodStatus = "Draft"
	PeriodStatusOpen         PeriodStatus = "Open"
	PeriodStatusPendingClose PeriodStatus = "PendingClose"
	PeriodStatusClosed       PeriodStatus = "Closed"
)

var AllPeriodStatus = []PeriodStatus{
	PeriodStatusDraft,
	PeriodStatusOpen,
	PeriodStatusPendingClose,
	PeriodStatusClosed,
}

func (e PeriodStatus) IsValid() bool {
	switch e {
	case PeriodStatusDraft, PeriodStatusOpen, PeriodStatusPendingClose, PeriodStatusClosed:
		return true
	}
	return false
}

func (e PeriodStatus) String() string {
	return string(e)
}

// MovementKind classifies a ledger movement. Transfers always come in pairs:
// one TRO at the source and one TRI at the destination, linked by doc ref.
type MovementKind string

const (
	MovementKindReceipt     MovementKind = "RCP"
	MovementKindConsumption MovementKind = "CNS"
	MovementKindTransferOut MovementKind = "TRO"
	MovementKindTransferIn  MovementKind = "TRI"
)

func (e MovementKind) IsValid() bool {
	switch e {
	case MovementKindReceipt, MovementKindConsumption, MovementKindTransferOut, MovementKindTransferIn:
		return true
	}
	return false
}

func (e MovementKind) String() string {
	return string(e)
}

type LocationReadiness string

const (
	LocationReadinessNotReady LocationReadiness = "NotReady"
	LocationReadinessReady    LocationReadiness = "Ready"
)

func (e LocationReadiness) IsValid() bool {
	return e == LocationReadinessNotReady || e == LocationReadinessReady
}

func (e LocationReadiness) String() string {
	return string(e)
}

type ApprovalStatus string

const (
	ApprovalStatusPending  ApprovalStatus = "Pending"
	ApprovalStatusApproved ApprovalStatus = "Approved"
	ApprovalStatusRejected ApprovalStatus = "Rejected"
)

func (e ApprovalStatus) IsValid() bool {
	switch e {
	case ApprovalStatusPending, ApprovalStatusApproved, ApprovalStatusRejected:
		return true
	}
	return false
}

func (e ApprovalStatus) String() string {
	return string(e)
}

// ApprovalEntityType tags the polymorphic Approval row. EntityId is an opaque
// reference resolved by whoever consumes the approval.
type ApprovalEntityType string

const (
	ApprovalEntityTypePeriodClose    ApprovalEntityType = "PeriodClose"
	ApprovalEntityTypePriceRevision  ApprovalEntityType = "PriceRevision"
	ApprovalEntityTypeManualWriteOff ApprovalEntityType = "ManualWriteOff"
)

func (e ApprovalEntityType) IsValid() bool {
	switch e {
	case ApprovalEntityTypePeriodClose, ApprovalEntityTypePriceRevision, ApprovalEntityTypeManualWriteOff:
		return true
	}
	return false
}

func (e ApprovalEntityType) String() string {
	return string(e)
}

type OutboxPublishStatus = string

const (
	OutboxPublishStatusPending    OutboxPublishStatus = "PENDING"
	OutboxPublishStatusProcessing OutboxPublishStatus = "PROCESSING"
	OutboxPublishStatusSent       OutboxPublishStatus = "SENT"
	OutboxPublishStatusFailed     OutboxPublishStatus = "FAILED"
	OutboxPublishStatusDead       OutboxPublishStatus = "DEAD"
)

// Notification events emitted through the outbox.
const (
	NotifyEventMovementPosted = "movement.posted"
	NotifyEventPeriodOpened   = "period.opened"
	NotifyEventLocationReady  = "period.location_ready"
	NotifyEventCloseRequested = "period.close_requested"
	NotifyEventCloseRejected  = "period.close_rejected"
	NotifyEventPeriodClosed   = "period.closed"
)
