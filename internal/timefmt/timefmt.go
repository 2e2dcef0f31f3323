// Package timefmt renders billing-provider epoch timestamps as the flat
// date/datetime strings the admin API exposes. Providers use 0 for absent
// timestamps; both helpers map that to nil so responses carry JSON null
// instead of an epoch-zero date.
package timefmt

import "time"

const (
	dateTimeLayout = "2006-01-02 15:04:05"
	dateLayout     = "2006-01-02"
)

// DateTime formats a Unix timestamp as "YYYY-MM-DD HH:MM:SS" in UTC.
// Returns nil for zero or negative epochs.
func DateTime(epoch int64) *string {
	if epoch <= 0 {
		return nil
	}
	s := time.Unix(epoch, 0).UTC().Format(dateTimeLayout)
	return &s
}

// Date formats a Unix timestamp as "YYYY-MM-DD" in UTC.
// Returns nil for zero or negative epochs.
func Date(epoch int64) *string {
	if epoch <= 0 {
		return nil
	}
	s := time.Unix(epoch, 0).UTC().Format(dateLayout)
	return &s
}
