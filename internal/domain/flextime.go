package domain

import (
	"encoding/json"
	"time"

	"go.mongodb.org/mongo-driver/bson/bsontype"
	"go.mongodb.org/mongo-driver/x/bsonx/bsoncore"
)

// FlexTime is a timestamp that tolerates the encodings seen in the raw
// collections: native BSON datetimes, ISO-8601 strings (with a trailing
// "Z" accepted as UTC), and absent/null values. Malformed encodings decode
// to the zero time instead of failing the document, so a single bad record
// never aborts a batch scan.
type FlexTime struct {
	time.Time
}

// NewFlexTime wraps a time.Time.
func NewFlexTime(t time.Time) FlexTime {
	return FlexTime{Time: t}
}

// ISO-8601 layouts accepted for string-encoded dates, tried in order.
var flexTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// parseFlexString parses an ISO-8601 string. Returns the zero time for
// anything unparseable.
func parseFlexString(s string) time.Time {
	for _, layout := range flexTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}

// UnmarshalBSONValue decodes datetime, string, and null BSON values.
func (ft *FlexTime) UnmarshalBSONValue(t bsontype.Type, data []byte) error {
	v := bsoncore.Value{Type: t, Data: data}
	switch t {
	case bsontype.DateTime:
		if tm, ok := v.TimeOK(); ok {
			ft.Time = tm.UTC()
			return nil
		}
	case bsontype.String:
		if s, ok := v.StringValueOK(); ok {
			ft.Time = parseFlexString(s)
			return nil
		}
	case bsontype.Null, bsontype.Undefined:
		ft.Time = time.Time{}
		return nil
	}
	// Unsupported encoding: treat as missing rather than failing the scan.
	ft.Time = time.Time{}
	return nil
}

// MarshalBSONValue encodes non-zero times as BSON datetimes, zero as null.
func (ft FlexTime) MarshalBSONValue() (bsontype.Type, []byte, error) {
	if ft.IsZero() {
		return bsontype.Null, nil, nil
	}
	return bsontype.DateTime, bsoncore.AppendTime(nil, ft.Time.UTC()), nil
}

// MarshalJSON encodes non-zero times as RFC3339, zero as null.
func (ft FlexTime) MarshalJSON() ([]byte, error) {
	if ft.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(ft.Time.UTC().Format(time.RFC3339))
}

// UnmarshalJSON accepts the same string layouts as the BSON path.
func (ft *FlexTime) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		ft.Time = time.Time{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		ft.Time = time.Time{}
		return nil
	}
	ft.Time = parseFlexString(s)
	return nil
}
