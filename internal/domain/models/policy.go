package models

import "time"

// LearningState classifies the outcome of a learning cycle.
type LearningState string

const (
	LearningSuccess          LearningState = "success"
	LearningWarmup           LearningState = "warmup"
	LearningInsufficientData LearningState = "insufficient_data"
)

// BiasState is the persisted per-asset directional weighting. All bias
// components are bounded to [-1,1]. Owned by the bias store; the core
// reads a snapshot and proposes deltas, it never writes directly.
type BiasState struct {
	AssetID     string
	BullBias    float64
	BearBias    float64
	VolBias     float64
	Version     int64
	LastUpdated time.Time
}

// NeutralBias is the default state for an asset with no persisted row.
func NeutralBias(assetID string) BiasState {
	return BiasState{AssetID: assetID}
}

// BiasDelta is a proposed incremental change to one asset's bias components.
type BiasDelta struct {
	Bull float64
	Bear float64
	Vol  float64
}

// IsZero reports whether the delta proposes no change.
func (d BiasDelta) IsZero() bool { return d.Bull == 0 && d.Bear == 0 && d.Vol == 0 }

// Add merges another delta additively.
func (d BiasDelta) Add(o BiasDelta) BiasDelta {
	return BiasDelta{Bull: d.Bull + o.Bull, Bear: d.Bear + o.Bear, Vol: d.Vol + o.Vol}
}

// PolicyDeltas is the transient value object returned by a learning cycle.
type PolicyDeltas struct {
	AssetBiases map[string]BiasDelta
	Risk        map[string]float64
}

// NewPolicyDeltas allocates an empty delta set.
func NewPolicyDeltas() PolicyDeltas {
	return PolicyDeltas{
		AssetBiases: make(map[string]BiasDelta),
		Risk:        make(map[string]float64),
	}
}

// Empty reports whether no adjustment was proposed at all.
func (p PolicyDeltas) Empty() bool { return len(p.AssetBiases) == 0 && len(p.Risk) == 0 }

// ClampScore bounds a score-like quantity to [0,1].
func ClampScore(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// ClampBias bounds a bias component to [-1,1].
func ClampBias(v float64) float64 {
	if v < -1 {
		return -1
	}
	if v > 1 {
		return 1
	}
	return v
}
