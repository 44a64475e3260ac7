package util

import (
	"time"

	"github.com/kapu/multistream-checker-go/internal/constants"
)

var quotaLocation *time.Location

func init() {
	var err error
	quotaLocation, err = time.LoadLocation(constants.YouTubeQuota.ResetTimezone)
	if err != nil {
		quotaLocation = time.FixedZone("PST", -8*60*60)
	}
}

// QuotaLocation is the timezone in which the YouTube daily quota rolls over.
func QuotaLocation() *time.Location {
	return quotaLocation
}

// QuotaDate returns the calendar day of t in the quota timezone as YYYY-MM-DD.
func QuotaDate(t time.Time) string {
	return t.In(quotaLocation).Format("2006-01-02")
}

// NextQuotaReset returns the next midnight after t in the quota timezone.
func NextQuotaReset(t time.Time) time.Time {
	local := t.In(quotaLocation)
	return time.Date(local.Year(), local.Month(), local.Day()+1, 0, 0, 0, 0, quotaLocation)
}

func FormatClock(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("15:04:05")
}
