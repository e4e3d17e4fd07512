package domain

// PaymentRecord represents a rider payment attempt.
// Corresponds to the payments collection in MongoDB.
type PaymentRecord struct {
	RiderID   string   `bson:"riderId" json:"riderId"`
	Status    string   `bson:"status" json:"status"`
	CreatedAt FlexTime `bson:"createdAt,omitempty" json:"createdAt,omitempty"`
}

// Payment status values
const (
	PaymentStatusCompleted = "completed"
	PaymentStatusPending   = "pending"
	PaymentStatusFailed    = "failed"
)
