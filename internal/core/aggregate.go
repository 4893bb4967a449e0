package core

// Update applies one classified message to the sender ledger and returns
// the updated map. The map belongs to the caller: Update touches no
// package state, so a run threads a single SenderMap through every
// message and owns load/save around the whole batch.
//
// For a new sender the record starts at MessageCount 1 with AdCount 1
// only when the label is advertisement. For an existing sender the
// counts are incremented and LastContact becomes the maximum of the
// stored value and the message date. Unknown labels count toward
// MessageCount and never toward AdCount.
//
// Update does not deduplicate: applying the same message twice counts it
// twice. Callers that need idempotent re-runs must track which message
// identifiers they have already applied.
func Update(records SenderMap, msg *MessageRecord, res *ClassificationResult) SenderMap {
	if records == nil {
		records = make(SenderMap)
	}

	addr := msg.Address
	if addr == "" {
		addr = NormalizeAddress(msg.From)
	}
	if addr == "" {
		return records
	}

	rec, ok := records[addr]
	if !ok {
		rec = &SenderRecord{Address: addr}
		records[addr] = rec
	}

	rec.MessageCount++
	if res != nil && res.Label == LabelAdvertisement {
		rec.AdCount++
	}

	// The unsubscribe link follows the newest message that carries one,
	// checked before LastContact advances so batch order does not matter.
	if msg.UnsubscribeURL != "" && !msg.Date.Before(rec.LastContact) {
		rec.UnsubscribeURL = msg.UnsubscribeURL
	}
	if msg.Date.After(rec.LastContact) {
		rec.LastContact = msg.Date
	}

	return records
}

// TotalMessages sums MessageCount across the ledger.
func (m SenderMap) TotalMessages() int64 {
	var n int64
	for _, rec := range m {
		n += rec.MessageCount
	}
	return n
}

// TotalAds sums AdCount across the ledger.
func (m SenderMap) TotalAds() int64 {
	var n int64
	for _, rec := range m {
		n += rec.AdCount
	}
	return n
}
