package features

import "sort"

// LabelEncoder maps categorical values to dense integer ids. Fit sorts
// the distinct values, so the encoding is deterministic for a given value
// set. The fitted state is persisted with the model so training and
// inference always share one encoding.
type LabelEncoder struct {
	Classes []string `json:"classes"`
}

// NewLabelEncoder creates an unfitted encoder.
func NewLabelEncoder() *LabelEncoder {
	return &LabelEncoder{}
}

// Fit learns the encoding from the observed values.
func (e *LabelEncoder) Fit(values []string) {
	seen := make(map[string]struct{}, len(values))
	classes := make([]string, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		classes = append(classes, v)
	}
	sort.Strings(classes)
	e.Classes = classes
}

// Fitted reports whether the encoder has learned any classes.
func (e *LabelEncoder) Fitted() bool {
	return len(e.Classes) > 0
}

// Transform returns the id for a value. A value unseen at fit time maps
// to the id of the "unknown" class when present, otherwise 0, so a new
// region at inference time degrades instead of failing.
func (e *LabelEncoder) Transform(value string) int {
	i := sort.SearchStrings(e.Classes, value)
	if i < len(e.Classes) && e.Classes[i] == value {
		return i
	}
	if j := sort.SearchStrings(e.Classes, unknownRegion); j < len(e.Classes) && e.Classes[j] == unknownRegion {
		return j
	}
	return 0
}
