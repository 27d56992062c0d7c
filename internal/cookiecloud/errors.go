package cookiecloud

import (
	"errors"
	"fmt"
	"strings"
)

// ErrEmptyCredential is returned when a matched cookie list renders to nothing.
var ErrEmptyCredential = errors.New("matched cookie list is empty")

// CredentialNotFoundError means the payload holds no cookies for the domain.
type CredentialNotFoundError struct {
	Domain        string
	AvailableKeys []string
}

func (e *CredentialNotFoundError) Error() string {
	return fmt.Sprintf("no cookies found for %s in CookieCloud, available domains: [%s]",
		e.Domain, strings.Join(e.AvailableKeys, ", "))
}

// RelayError is a non-200 response from the relay server.
type RelayError struct {
	StatusCode int
	Body       string
}

func (e *RelayError) Error() string {
	return fmt.Sprintf("CookieCloud relay error: HTTP %d: %s", e.StatusCode, e.Body)
}
