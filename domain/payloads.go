package domain

// Feature names double as the code-store key prefix and the OTP context.
const (
	FeatureSegmentActivation   = "segment-activation"
	FeatureDematFreeze         = "demat-freeze"
	FeatureSettlementFrequency = "settlement-frequency"
)

// SegmentActivationPayload requests the active/inactive state of trading segments.
type SegmentActivationPayload struct {
	Segments map[string]bool `json:"segments" validate:"required,min=1,dive,keys,required,endkeys"`
}

// DematAction is the direction of a freeze request.
type DematAction string

const (
	DematFreeze   DematAction = "freeze"
	DematUnfreeze DematAction = "unfreeze"
)

// TargetStatus is the account status the action leads to.
func (a DematAction) TargetStatus() DematStatus {
	if a == DematFreeze {
		return DematFrozen
	}
	return DematActive
}

// DematFreezePayload requests freezing or unfreezing one demat account.
type DematFreezePayload struct {
	DematAccountID uint        `json:"demat_account_id" validate:"required"`
	Action         DematAction `json:"action" validate:"required,oneof=freeze unfreeze"`
}

// SettlementFrequencyPayload requests a new fund settlement frequency.
type SettlementFrequencyPayload struct {
	Frequency SettlementFrequency `json:"frequency" validate:"required,oneof=monthly quarterly"`
}

// SegmentActivationResult lists the segments active after the change.
type SegmentActivationResult struct {
	ActiveSegments []string `json:"active_segments"`
}

// SettlementFrequencyResult echoes the stored frequency.
type SettlementFrequencyResult struct {
	Frequency SettlementFrequency `json:"frequency"`
}
