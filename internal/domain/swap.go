package domain

// SwapEvent represents one battery swap performed by a rider.
// Corresponds to the swaphistories collection in MongoDB.
type SwapEvent struct {
	RiderID  string       `bson:"riderId" json:"riderId"`
	SwapDate FlexTime     `bson:"swapDate,omitempty" json:"swapDate,omitempty"`
	Location SwapLocation `bson:"location,omitempty" json:"location,omitempty"`
}

// SwapLocation is the embedded station document on a swap event.
type SwapLocation struct {
	Name string `bson:"name,omitempty" json:"name,omitempty"`
}
