package instruments

import (
	"sort"
	"time"

	"github.com/unifex/exchange-adapter/pkg/meta"
)

// deliveryHour is the UTC settlement hour shared by the major venues.
const deliveryHour = 8

// lastFridayOnOrBefore steps t back to the most recent Friday, keeping the
// time of day.
func lastFridayOnOrBefore(t time.Time) time.Time {
	back := (7 + int(t.Weekday()) - int(time.Friday)) % 7
	return t.AddDate(0, 0, -back)
}

// QuarterDeliveryTimes returns the canonical quarterly settlement instants:
// the last Friday 08:00 UTC of each quarter end for the current and next
// calendar year, future-only relative to now, ascending. Index 0 is the
// current quarter, index 1 the next quarter.
func QuarterDeliveryTimes(now time.Time) []time.Time {
	now = now.UTC()
	anchors := [][2]int{{3, 31}, {6, 30}, {9, 30}, {12, 31}}

	var out []time.Time
	for _, year := range []int{now.Year(), now.Year() + 1} {
		for _, md := range anchors {
			end := time.Date(year, time.Month(md[0]), md[1], deliveryHour, 0, 0, 0, time.UTC)
			d := lastFridayOnOrBefore(end)
			if d.After(now) {
				out = append(out, d)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}

// WeekDeliveryTimes returns the next Fridays 08:00 UTC, future-only,
// ascending. Index 0 is the current week, index 1 the next week.
func WeekDeliveryTimes(now time.Time) []time.Time {
	now = now.UTC()
	base := time.Date(now.Year(), now.Month(), now.Day(), deliveryHour, 0, 0, 0, time.UTC)
	toFriday := int(time.Friday) - int(base.Weekday())

	var out []time.Time
	for week := 0; week < 3; week++ {
		d := base.AddDate(0, 0, week*7+toFriday)
		if d.After(now) {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}

// MonthDeliveryTimes returns the last Friday 08:00 UTC of each month for the
// current and next calendar year, future-only, ascending.
func MonthDeliveryTimes(now time.Time) []time.Time {
	now = now.UTC()

	var out []time.Time
	for _, year := range []int{now.Year(), now.Year() + 1} {
		for month := time.January; month <= time.December; month++ {
			// Last day of month, stepped back to Friday.
			end := time.Date(year, month+1, 1, deliveryHour, 0, 0, 0, time.UTC).AddDate(0, 0, -1)
			d := lastFridayOnOrBefore(end)
			if d.After(now) {
				out = append(out, d)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}

// ClassifyDelivery matches a contract expiry (UTC ms) against the canonical
// quarterly settlement set. A non-matching expiry returns false and the
// contract is ignored by the sync; guessing a bucket would corrupt the
// downstream delivery tags.
func ClassifyDelivery(expiryMS int64, now time.Time) (meta.ContractType, bool) {
	quarters := QuarterDeliveryTimes(now)
	if len(quarters) > 0 && quarters[0].UnixMilli() == expiryMS {
		return meta.ContractCQ, true
	}
	if len(quarters) > 1 && quarters[1].UnixMilli() == expiryMS {
		return meta.ContractNQ, true
	}
	return meta.ContractUnknown, false
}

// DeliverySuffix formats a settlement instant as the YYMMDD unified-symbol
// suffix.
func DeliverySuffix(expiryMS int64) string {
	return time.UnixMilli(expiryMS).UTC().Format("060102")
}
