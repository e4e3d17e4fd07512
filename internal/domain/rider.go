package domain

// RecencyWindowDays is the trailing window that defines "recent"
// activity. A rider whose last swap is older than this is labeled
// churned, and summary activity counts use the same window.
const RecencyWindowDays = 30

// RegionUnknown is the fallback region for riders with no region set.
// The label encoder maps unseen regions onto it when present.
const RegionUnknown = "unknown"

// RiderRecord is one registered rider as stored in the riders
// collection.
type RiderRecord struct {
	RiderID          string   `bson:"riderId" json:"riderId"`
	Name             string   `bson:"name" json:"name"`
	RegistrationDate FlexTime `bson:"registrationDate" json:"registrationDate"`
	Region           string   `bson:"region" json:"region"` // empty = unknown
}
