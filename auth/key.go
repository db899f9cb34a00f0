package auth

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

// NewLicenseKey generates a license key of the form YKP-<YYYYMM>-<8 hex>,
// e.g. YKP-202608-9F3A01BC.
func NewLicenseKey() string {
	buf := make([]byte, 4)
	_, _ = rand.Read(buf)

	return fmt.Sprintf("YKP-%s-%s",
		time.Now().UTC().Format("200601"),
		strings.ToUpper(hex.EncodeToString(buf)),
	)
}
