/*
 * file: validate.go
 * package: validate
 * description:
 *     Bit-exact identifier validation shared by the Room Manager and the
 *     Transport Gateway: display names, account names, room codes, and
 *     game-type tags.
 */
package validate

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var (
	displayNamePattern = regexp.MustCompile(`^[\p{L}\p{N} _'’.-]{1,24}$`)
	accountNamePattern = regexp.MustCompile(`^[A-Za-z0-9_-]{3,24}$`)
	gameTypePattern    = regexp.MustCompile(`^[A-Za-z0-9_-]{1,50}$`)
	serverRoomIDPattern = regexp.MustCompile(`^[A-Za-z]+_[A-Fa-f0-9]{8}$`)
	whitespaceRun      = regexp.MustCompile(`\s+`)
	nonAlphaNumeric    = regexp.MustCompile(`[^A-Z0-9]`)
)

// DisplayName NFKC-normalizes, collapses whitespace, trims, and validates
// the result against the display-name charset.
func DisplayName(raw string) (string, bool) {
	normalized := norm.NFKC.String(raw)
	collapsed := whitespaceRun.ReplaceAllString(normalized, " ")
	trimmed := strings.TrimSpace(collapsed)
	return trimmed, displayNamePattern.MatchString(trimmed)
}

// AccountName validates an account handle.
func AccountName(raw string) bool {
	return accountNamePattern.MatchString(raw)
}

// GameType validates a game-id-shaped string (existence in the registry
// is checked separately by the caller).
func GameType(raw string) bool {
	return gameTypePattern.MatchString(raw)
}

// RoomCode normalizes a client-supplied invite code: uppercase, strip
// anything outside [A-Z0-9], require length 3-10.
func RoomCode(raw string) (string, bool) {
	upper := strings.ToUpper(raw)
	stripped := nonAlphaNumeric.ReplaceAllString(upper, "")
	return stripped, len(stripped) >= 3 && len(stripped) <= 10
}

// IsServerRoomID reports whether an id matches the server-generated
// `{prefix}_{8 hex}` shape.
func IsServerRoomID(id string) bool {
	return serverRoomIDPattern.MatchString(id)
}
