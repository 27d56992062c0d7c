package config

import "strings"

const (
	// DefaultDatabasePath is the default path for the application database
	DefaultDatabasePath = "./weread-sync.db"

	// DefaultCookieCloudURL is the public CookieCloud relay
	DefaultCookieCloudURL = "https://cookiecloud.malinkang.com/"

	// DefaultWeReadBaseURL is the WeRead web origin
	DefaultWeReadBaseURL = "https://weread.qq.com"
)

// splitList parses a comma or whitespace separated list, dropping empty items.
func splitList(s string) []string {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\n' || r == '\t'
	})
	if len(fields) == 0 {
		return nil
	}
	return fields
}
