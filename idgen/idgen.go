// Package idgen mints the two flavors of identifier the board server
// hands out: short tokens (session ids, also used for subscriber user
// ids) and opaque element ids. Both
// ride on gofrs/uuid, the same library the teacher corpus uses for
// stroke and user identifiers.
package idgen

import (
	"strings"

	"github.com/gofrs/uuid/v5"
)

// sessionIDLen is the number of lowercase-alphanumeric characters kept
// from the underlying UUID. Spec requires >= 6; 12 leaves comfortable
// headroom against collision while staying short enough to type into
// a URL.
const sessionIDLen = 12

// NewSessionID returns a short, printable, lowercase-alphanumeric
// session token. Entropy comes from a UUID v4; we keep its hex digits
// only, which are already lowercase alphanumeric.
func NewSessionID() string {
	id, err := uuid.NewV4()
	if err != nil {
		// uuid.NewV4 only fails if crypto/rand is broken; there is no
		// sane fallback, so surface it the same way a panic-on-init
		// dependency failure would.
		panic("idgen: failed to generate session id: " + err.Error())
	}
	hex := strings.ReplaceAll(id.String(), "-", "")
	return hex[:sessionIDLen]
}

// NewElementID returns an opaque, process-wide-unique element
// identifier.
func NewElementID() string {
	id, err := uuid.NewV4()
	if err != nil {
		panic("idgen: failed to generate element id: " + err.Error())
	}
	return id.String()
}
