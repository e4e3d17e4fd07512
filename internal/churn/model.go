package churn

import (
	"encoding/json"
	"fmt"

	"rider-analytics-lab/internal/features"
)

// Model is one trained churn model generation: the fitted ensemble plus
// the fitted standardization transform and region encoding it was trained
// with. The three are immutable once assembled; a retrain builds a fresh
// Model and swaps the whole value.
type Model struct {
	Forest  *Forest
	Scaler  *StandardScaler
	Regions *features.LabelEncoder
}

// scalerArtifact is the persisted form of the transform blob. The region
// encoder rides with the scaler so a reloaded model can never pair the
// ensemble with a different encoding than it was trained on.
type scalerArtifact struct {
	Scaler  *StandardScaler        `json:"scaler"`
	Regions *features.LabelEncoder `json:"regions"`
}

// Marshal serializes the model into its two artifact blobs:
// the ensemble and the transform.
func (m *Model) Marshal() (model, scaler []byte, err error) {
	model, err = json.Marshal(m.Forest)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal ensemble: %w", err)
	}

	scaler, err = json.Marshal(scalerArtifact{Scaler: m.Scaler, Regions: m.Regions})
	if err != nil {
		return nil, nil, fmt.Errorf("marshal transform: %w", err)
	}
	return model, scaler, nil
}

// UnmarshalModel reassembles a model from its two artifact blobs.
func UnmarshalModel(model, scaler []byte) (*Model, error) {
	var forest Forest
	if err := json.Unmarshal(model, &forest); err != nil {
		return nil, fmt.Errorf("unmarshal ensemble: %w", err)
	}

	var art scalerArtifact
	if err := json.Unmarshal(scaler, &art); err != nil {
		return nil, fmt.Errorf("unmarshal transform: %w", err)
	}
	if art.Scaler == nil || !art.Scaler.Fitted() || art.Regions == nil {
		return nil, fmt.Errorf("transform artifact is incomplete")
	}

	return &Model{Forest: &forest, Scaler: art.Scaler, Regions: art.Regions}, nil
}
