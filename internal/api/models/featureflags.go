package models

// FeatureFlag is a flag and its current value.
type FeatureFlag struct {
	Key       string      `json:"key"`
	Value     interface{} `json:"value"`
	UpdatedAt Timestamp   `json:"updatedAt"`
}

// FeatureFlagList wraps all flags.
type FeatureFlagList struct {
	Items []FeatureFlag `json:"items"`
}

// FeatureFlagUpdateRequest sets one or more flags.
type FeatureFlagUpdateRequest struct {
	Flags []FeatureFlagUpdate `json:"flags" validate:"required,min=1,dive"`
}

// FeatureFlagUpdate is a single flag assignment.
type FeatureFlagUpdate struct {
	Key   string      `json:"key" validate:"required"`
	Value interface{} `json:"value"`
}
