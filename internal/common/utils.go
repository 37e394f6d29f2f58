package common

import "strings"

// NormalizeHeader lowercases and trims a column name, dropping a UTF-8 BOM.
func NormalizeHeader(s string) string {
	s = strings.TrimPrefix(s, "\ufeff")
	return strings.ToLower(strings.TrimSpace(s))
}
