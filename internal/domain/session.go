package domain

// SessionStatus enumerates the edit-session lifecycle.
type SessionStatus string

const (
	StatusIdle          SessionStatus = "IDLE"
	StatusImageSelected SessionStatus = "IMAGE_SELECTED"
	StatusProcessing    SessionStatus = "PROCESSING"
	StatusSuccess       SessionStatus = "SUCCESS"
	StatusError         SessionStatus = "ERROR"
)

// FailureKind separates safety refusals from every other generation failure.
type FailureKind string

const (
	FailureNone    FailureKind = ""
	FailureSafety  FailureKind = "safety"
	FailureGeneric FailureKind = "generic"
)

// ImageSlot addresses one of the images held by a session.
type ImageSlot string

const (
	SlotOriginal  ImageSlot = "original"
	SlotWorking   ImageSlot = "working"
	SlotGenerated ImageSlot = "generated"
)

// ParseImageSlot validates a slot name.
func ParseImageSlot(v string) (ImageSlot, bool) {
	switch ImageSlot(v) {
	case SlotOriginal, SlotWorking, SlotGenerated:
		return ImageSlot(v), true
	}
	return "", false
}
