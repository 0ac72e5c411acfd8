package infer

import (
	"time"

	"github.com/google/uuid"
)

const (
	FormatUUID     = "uuid"
	FormatDateTime = "date-time"
	FormatDate     = "date"
)

func detectFormat(s string) string {
	// uuid.Parse also takes urn:uuid: and braced forms, only the plain
	// 36 character form counts here
	if len(s) == 36 {
		if _, err := uuid.Parse(s); err == nil {
			return FormatUUID
		}
	}
	if _, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return FormatDateTime
	}
	if len(s) == len(time.DateOnly) {
		if _, err := time.Parse(time.DateOnly, s); err == nil {
			return FormatDate
		}
	}
	return ""
}
