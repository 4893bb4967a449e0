package core

import (
	"time"
)

// Label is the classification outcome for a single message.
type Label string

const (
	LabelAdvertisement    Label = "advertisement"
	LabelNotAdvertisement Label = "not_advertisement"
	LabelUnknown          Label = "unknown"
)

// MessageRecord represents one parsed message. Records are transient:
// they feed the aggregator and are never persisted themselves.
type MessageRecord struct {
	ID             string
	From           string
	Address        string
	Date           time.Time
	Subject        string
	Body           string
	UnsubscribeURL string
}

// ClassificationResult represents the outcome of classifying one message
type ClassificationResult struct {
	Label        Label
	Score        float64
	Confidence   float64
	Explanation  string
	ClassifiedAt time.Time
	ModelUsed    string
	ProcessingID string
}

// SenderRecord is the persistent per-sender aggregate. Address is always
// normalized. AdCount never exceeds MessageCount and LastContact never
// decreases across updates.
type SenderRecord struct {
	Address        string
	LastContact    time.Time
	MessageCount   int64
	AdCount        int64
	UnsubscribeURL string
}

// SenderMap is the full sender ledger keyed by normalized address.
type SenderMap map[string]*SenderRecord

type VerdictEntry struct {
	SenderAddress string
	Label         Label
	Score         float64
	Confidence    float64
	LastSeen      time.Time
	ExpiresAt     time.Time
}

// RunSummary reports what happened to a batch. Nothing is skipped
// silently: every listed message lands in Processed, SkippedFetch or
// SkippedParse, except the tail a cancelled run never finished.
type RunSummary struct {
	RunID             string
	StartedAt         time.Time
	FinishedAt        time.Time
	Processed         int
	SkippedFetch      int
	SkippedParse      int
	ClassifiedUnknown int
	Senders           int
}
