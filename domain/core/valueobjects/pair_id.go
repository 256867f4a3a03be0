package valueobjects

import (
	"errors"
	"strings"
)

// pairSeparator joins the two user ids of a pair. User ids come from the
// identity provider and never contain '#'.
const pairSeparator = "#"

// PairID identifies an unordered pair of users. It is the identity of a
// connection request, a peer edge, and the conversation that belongs to
// the edge. The two user ids are stored in lexicographic order so the
// same pair always produces the same PairID regardless of direction.
type PairID struct {
	low  UserID
	high UserID
}

// NewPairID builds the canonical PairID for two distinct users.
func NewPairID(a, b UserID) (PairID, error) {
	if a.IsZero() || b.IsZero() {
		return PairID{}, errors.New("pair requires two user IDs")
	}
	if a.Equals(b) {
		return PairID{}, errors.New("pair requires two distinct users")
	}
	if a.String() > b.String() {
		a, b = b, a
	}
	return PairID{low: a, high: b}, nil
}

// ParsePairID reconstructs a PairID from its string form.
func ParsePairID(s string) (PairID, error) {
	parts := strings.SplitN(s, pairSeparator, 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return PairID{}, errors.New("malformed pair ID")
	}
	a, err := NewUserID(parts[0])
	if err != nil {
		return PairID{}, err
	}
	b, err := NewUserID(parts[1])
	if err != nil {
		return PairID{}, err
	}
	return NewPairID(a, b)
}

// String returns the canonical string form: "<low>#<high>".
func (p PairID) String() string {
	return p.low.String() + pairSeparator + p.high.String()
}

// Users returns both members of the pair in canonical order.
func (p PairID) Users() (UserID, UserID) {
	return p.low, p.high
}

// Contains reports whether the given user is a member of the pair.
func (p PairID) Contains(u UserID) bool {
	return p.low.Equals(u) || p.high.Equals(u)
}

// Other returns the member of the pair that is not the given user.
// The second return is false when the user is not part of the pair.
func (p PairID) Other(u UserID) (UserID, bool) {
	switch {
	case p.low.Equals(u):
		return p.high, true
	case p.high.Equals(u):
		return p.low, true
	default:
		return UserID{}, false
	}
}

// Equals checks if two PairIDs identify the same pair.
func (p PairID) Equals(other PairID) bool {
	return p.low.Equals(other.low) && p.high.Equals(other.high)
}

// IsZero checks if the PairID is the zero value.
func (p PairID) IsZero() bool {
	return p.low.IsZero() && p.high.IsZero()
}

// MarshalJSON implements json.Marshaler
func (p PairID) MarshalJSON() ([]byte, error) {
	return []byte(`"` + p.String() + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler
func (p *PairID) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	if len(data) < 2 || data[0] != '"' || data[len(data)-1] != '"' {
		return errors.New("PairID must be a string")
	}
	parsed, err := ParsePairID(string(data[1 : len(data)-1]))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}
