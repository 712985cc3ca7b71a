package attrstore

import "strings"

// normalizeEmail canonicalizes an email for use as a storage key. The CRM
// treats emails case-insensitively, so the store must too.
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
