package domain

import "strings"

// Separator joins the two sorted participant ids of a direct-message room.
const Separator = "_"

const maxIDLen = 64

// ValidateID accepts 1..64 characters from [A-Za-z0-9-]. The separator is
// outside that set, so a direct room key always splits back unambiguously.
func ValidateID(id string) error {
	if id == "" || len(id) > maxIDLen {
		return ErrInvalidID
	}
	for i := 0; i < len(id); i++ {
		c := id[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '-':
		default:
			return ErrInvalidID
		}
	}
	return nil
}

// DirectRoom is commutative: DirectRoom(a, b) == DirectRoom(b, a).
func DirectRoom(a, b string) string {
	if b < a {
		a, b = b, a
	}
	return a + Separator + b
}

// SpaceRoom uses the space id verbatim.
func SpaceRoom(spaceID string) string {
	return spaceID
}

// ResolveDirectRoom validates both participants before deriving the key.
func ResolveDirectRoom(a, b string) (string, error) {
	if err := ValidateID(a); err != nil {
		return "", err
	}
	if err := ValidateID(b); err != nil {
		return "", err
	}
	if a == b {
		return "", ErrSelfRoom
	}
	return DirectRoom(a, b), nil
}

// ParseDirectRoom splits a direct room key into its two components.
func ParseDirectRoom(room string) (string, string, bool) {
	a, b, ok := strings.Cut(room, Separator)
	if !ok || ValidateID(a) != nil || ValidateID(b) != nil {
		return "", "", false
	}
	return a, b, true
}

func IsDirectRoom(room string) bool {
	_, _, ok := ParseDirectRoom(room)
	return ok
}

// Counterpart returns the participant of a direct room that is not userID.
func Counterpart(room, userID string) (string, bool) {
	a, b, ok := ParseDirectRoom(room)
	switch {
	case !ok:
		return "", false
	case a == userID && b != userID:
		return b, true
	case b == userID && a != userID:
		return a, true
	default:
		return "", false
	}
}

// ValidateRoom accepts a space id or a well-formed direct room key.
func ValidateRoom(room string) error {
	if room == "" {
		return ErrMissingRoom
	}
	if strings.Contains(room, Separator) {
		if !IsDirectRoom(room) {
			return ErrInvalidRoom
		}
		return nil
	}
	if ValidateID(room) != nil {
		return ErrInvalidRoom
	}
	return nil
}

// DirectRoomPatterns returns SQL LIKE patterns (escape character '\') that
// match the two positions userID can take in a direct room key.
func DirectRoomPatterns(userID string) (prefix, suffix string) {
	esc := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(userID)
	sep := `\` + Separator
	return esc + sep + "%", "%" + sep + esc
}
