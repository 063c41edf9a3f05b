// Package matcher decides whether a fetched body satisfies a signature rule.
package matcher

import (
	"bytes"
	"crypto/md5"
	"encoding/hex"
	"unicode/utf8"

	"github.com/maxvaer/cmsid/internal/signature"
)

// Matches reports whether body satisfies rule. Keyword rules need the body
// to be valid UTF-8; hash rules compare lowercase hex MD5 exactly.
func Matches(rule signature.Rule, body []byte) bool {
	switch rule.Mode {
	case signature.Keyword:
		if rule.Pattern == "" || !utf8.Valid(body) {
			return false
		}
		return bytes.Contains(body, []byte(rule.Pattern))
	case signature.Hash:
		return Hash(body) == rule.Pattern
	default:
		return false
	}
}

// Hash returns the hex MD5 of body, the format hash-mode patterns are stored in.
func Hash(body []byte) string {
	sum := md5.Sum(body)
	return hex.EncodeToString(sum[:])
}
