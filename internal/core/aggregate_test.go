package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func msgFrom(from string, date time.Time) *MessageRecord {
	return &MessageRecord{
		From:    from,
		Address: NormalizeAddress(from),
		Date:    date,
		Body:    "hello",
	}
}

func labeled(l Label) *ClassificationResult {
	return &ClassificationResult{Label: l}
}

func TestUpdateNewSender(t *testing.T) {
	records := Update(make(SenderMap), msgFrom("bob@example.com", day(2024, time.January, 15)), labeled(LabelNotAdvertisement))

	require.Len(t, records, 1)
	rec := records["bob@example.com"]
	require.NotNil(t, rec)
	assert.Equal(t, int64(1), rec.MessageCount)
	assert.Equal(t, int64(0), rec.AdCount)
	assert.Equal(t, day(2024, time.January, 15), rec.LastContact)
}

func TestUpdateTwoSenderScenario(t *testing.T) {
	type entry struct {
		from  string
		date  time.Time
		label Label
	}
	batch := []entry{
		{"Alice@Example.com", day(2024, time.January, 1), LabelAdvertisement},
		{"Alice@Example.com", day(2024, time.March, 5), LabelNotAdvertisement},
		{"Alice@Example.com", day(2024, time.February, 10), LabelAdvertisement},
		{"bob@example.com", day(2024, time.January, 15), LabelNotAdvertisement},
	}

	records := make(SenderMap)
	for _, e := range batch {
		records = Update(records, msgFrom(e.from, e.date), labeled(e.label))
	}

	require.Len(t, records, 2)

	alice := records["alice@example.com"]
	require.NotNil(t, alice)
	assert.Equal(t, int64(3), alice.MessageCount)
	assert.Equal(t, int64(2), alice.AdCount)
	assert.Equal(t, day(2024, time.March, 5), alice.LastContact)

	bob := records["bob@example.com"]
	require.NotNil(t, bob)
	assert.Equal(t, int64(1), bob.MessageCount)
	assert.Equal(t, int64(0), bob.AdCount)
	assert.Equal(t, day(2024, time.January, 15), bob.LastContact)
}

func TestUpdateOrderInsensitive(t *testing.T) {
	dates := []time.Time{
		day(2024, time.March, 5),
		day(2024, time.January, 1),
		day(2024, time.February, 10),
	}
	labels := []Label{LabelNotAdvertisement, LabelAdvertisement, LabelAdvertisement}

	perms := [][]int{{0, 1, 2}, {2, 1, 0}, {1, 2, 0}, {2, 0, 1}}
	for _, perm := range perms {
		records := make(SenderMap)
		for _, i := range perm {
			records = Update(records, msgFrom("alice@example.com", dates[i]), labeled(labels[i]))
		}
		rec := records["alice@example.com"]
		require.NotNil(t, rec)
		assert.Equal(t, int64(3), rec.MessageCount)
		assert.Equal(t, int64(2), rec.AdCount)
		assert.Equal(t, day(2024, time.March, 5), rec.LastContact)
	}
}

func TestUpdateUnknownNeverCountsAsAd(t *testing.T) {
	records := make(SenderMap)
	for i := 0; i < 5; i++ {
		records = Update(records, msgFrom("carol@example.com", day(2024, time.April, 1+i)), labeled(LabelUnknown))
	}

	rec := records["carol@example.com"]
	require.NotNil(t, rec)
	assert.Equal(t, int64(5), rec.MessageCount)
	assert.Equal(t, int64(0), rec.AdCount)
}

func TestUpdateLastContactNeverDecreases(t *testing.T) {
	records := make(SenderMap)
	records = Update(records, msgFrom("dan@example.com", day(2024, time.June, 30)), labeled(LabelNotAdvertisement))
	records = Update(records, msgFrom("dan@example.com", day(2023, time.December, 25)), labeled(LabelNotAdvertisement))

	assert.Equal(t, day(2024, time.June, 30), records["dan@example.com"].LastContact)
}

func TestUpdateAdCountBoundedByMessageCount(t *testing.T) {
	records := make(SenderMap)
	labels := []Label{
		LabelAdvertisement, LabelUnknown, LabelAdvertisement,
		LabelNotAdvertisement, LabelAdvertisement,
	}
	for i, l := range labels {
		records = Update(records, msgFrom("eve@example.com", day(2024, time.May, 1+i)), labeled(l))
	}

	rec := records["eve@example.com"]
	require.NotNil(t, rec)
	assert.LessOrEqual(t, rec.AdCount, rec.MessageCount)
	assert.Equal(t, int64(3), rec.AdCount)
}

func TestUpdateNilMapAllocates(t *testing.T) {
	records := Update(nil, msgFrom("bob@example.com", day(2024, time.January, 15)), labeled(LabelNotAdvertisement))
	require.NotNil(t, records)
	assert.Len(t, records, 1)
}

func TestUpdateNoSenderLeavesMapUntouched(t *testing.T) {
	records := make(SenderMap)
	records = Update(records, &MessageRecord{Date: day(2024, time.January, 1)}, labeled(LabelAdvertisement))
	assert.Empty(t, records)
}

func TestUpdateUnsubscribeFollowsNewestMessage(t *testing.T) {
	older := msgFrom("f@example.com", day(2024, time.January, 1))
	older.UnsubscribeURL = "https://example.com/unsub/old"
	newer := msgFrom("f@example.com", day(2024, time.February, 1))
	newer.UnsubscribeURL = "https://example.com/unsub/new"
	newest := msgFrom("f@example.com", day(2024, time.March, 1))

	for _, order := range [][]*MessageRecord{
		{older, newer, newest},
		{newest, newer, older},
		{newer, older, newest},
	} {
		records := make(SenderMap)
		for _, m := range order {
			records = Update(records, m, labeled(LabelAdvertisement))
		}
		assert.Equal(t, "https://example.com/unsub/new", records["f@example.com"].UnsubscribeURL)
	}
}

func TestSenderMapTotals(t *testing.T) {
	records := make(SenderMap)
	records = Update(records, msgFrom("a@example.com", day(2024, time.January, 1)), labeled(LabelAdvertisement))
	records = Update(records, msgFrom("a@example.com", day(2024, time.January, 2)), labeled(LabelNotAdvertisement))
	records = Update(records, msgFrom("b@example.com", day(2024, time.January, 3)), labeled(LabelAdvertisement))

	assert.Equal(t, int64(3), records.TotalMessages())
	assert.Equal(t, int64(2), records.TotalAds())
}
