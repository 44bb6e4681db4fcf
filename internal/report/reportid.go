package report

import (
	"crypto/rand"
	"fmt"
)

const reportIDCharset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// NewReportID mints the short human-shareable report code, LL- followed
// by five characters from [A-Z0-9].
func NewReportID() (string, error) {
	buf := make([]byte, 5)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate report id: %w", err)
	}
	code := make([]byte, 5)
	for i, b := range buf {
		code[i] = reportIDCharset[int(b)%len(reportIDCharset)]
	}
	return "LL-" + string(code), nil
}
