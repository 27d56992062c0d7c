package weread

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
)

const (
	bookIDChunkSize = 9
	minKeyPrefixLen = 20
)

// ToInternalKey converts a public bookId into the key used in web reader URLs.
// The layout has to match the reader exactly or the URL is rejected.
func ToInternalKey(bookID string) string {
	digest := md5Hex(bookID)

	code, parts := transformBookID(bookID)

	var b strings.Builder
	b.WriteString(digest[:3])
	b.WriteString(code)
	b.WriteString("2")
	b.WriteString(digest[len(digest)-2:])

	for i, p := range parts {
		fmt.Fprintf(&b, "%02x", len(p))
		b.WriteString(p)
		if i < len(parts)-1 {
			b.WriteString("g")
		}
	}

	result := b.String()
	if len(result) < minKeyPrefixLen {
		result += digest[:minKeyPrefixLen-len(result)]
	}

	return result + md5Hex(result)[:3]
}

// ReaderURL returns the web reader URL for a book.
func ReaderURL(bookID string) string {
	return fmt.Sprintf("%s/web/reader/%s", DefaultBaseURL, ToInternalKey(bookID))
}

// transformBookID splits numeric ids into 9-digit chunks rendered as hex
// (type "3"); any other id becomes the hex code points of its characters (type "4").
func transformBookID(bookID string) (string, []string) {
	if isDigits(bookID) {
		var parts []string
		for i := 0; i < len(bookID); i += bookIDChunkSize {
			end := min(i+bookIDChunkSize, len(bookID))
			n, _ := strconv.ParseUint(bookID[i:end], 10, 64)
			parts = append(parts, strconv.FormatUint(n, 16))
		}
		return "3", parts
	}

	var b strings.Builder
	for _, r := range bookID {
		b.WriteString(strconv.FormatInt(int64(r), 16))
	}
	return "4", []string{b.String()}
}

// isDigits reports whether s has only ASCII digits. The empty string counts.
func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

func md5Hex(s string) string {
	sum := md5.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}
