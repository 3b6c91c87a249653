// Package audit provides append-only conversation log sinks: structured log
// output, local files and Google Cloud Storage objects.
package audit

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/aretw0/orderdesk/pkg/domain"
)

const (
	banner      = "------------------------------"
	isoMillis   = "2006-01-02T15:04:05.000Z07:00"
	logFileName = "_conversation.txt"
)

// Format renders rec as a block of the plain-text conversation log.
// Session start and end records are wrapped in banners.
func Format(rec domain.AuditRecord) string {
	ts := rec.Timestamp.UTC().Format(isoMillis)

	var b strings.Builder
	if rec.SessionStart {
		fmt.Fprintf(&b, "\n%s\nSession Start: %s (Group: %s) - %s\n%s\n", banner, rec.UserID, rec.Group, ts, banner)
	}
	fmt.Fprintf(&b, "%s - %s - %s - %s: %s\n", ts, rec.UserID, rec.Group, rec.Role, rec.Text)
	if rec.SessionEnd {
		fmt.Fprintf(&b, "\n%s\nSession End: %s - %s\n%s\n", banner, rec.UserID, ts, banner)
	}
	return b.String()
}

// FileName is the per-user log name. The user ID is escaped so it cannot
// introduce path separators.
func FileName(userID string) string {
	return url.PathEscape(userID) + logFileName
}

// stamp fills a missing timestamp.
func stamp(rec domain.AuditRecord) domain.AuditRecord {
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now()
	}
	return rec
}
