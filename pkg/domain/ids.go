package domain

import (
	"github.com/google/uuid"

	dErrors "chainaudit/pkg/domain-errors"
)

// Typed identifiers for rows this service creates itself. Owner and tracked
// record ids stay plain strings because their schema belongs to callers.
type (
	IdentityID uuid.UUID
	ChainID    uuid.UUID
	EntryID    uuid.UUID
)

func parseUUID(kind, s string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, kind+" is required")
	}
	if len(s) > 64 {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+kind)
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid "+kind)
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, kind+" must not be nil")
	}
	return u, nil
}

// ParseIdentityID validates an identity id at a trust boundary.
func ParseIdentityID(s string) (IdentityID, error) {
	u, err := parseUUID("identity id", s)
	return IdentityID(u), err
}

// ParseChainID validates a chain id at a trust boundary.
func ParseChainID(s string) (ChainID, error) {
	u, err := parseUUID("chain id", s)
	return ChainID(u), err
}

// ParseEntryID validates an entry id at a trust boundary.
func ParseEntryID(s string) (EntryID, error) {
	u, err := parseUUID("entry id", s)
	return EntryID(u), err
}

func NewIdentityID() IdentityID { return IdentityID(uuid.New()) }
func NewChainID() ChainID       { return ChainID(uuid.New()) }
func NewEntryID() EntryID       { return EntryID(uuid.New()) }

func (id IdentityID) String() string { return uuid.UUID(id).String() }
func (id ChainID) String() string    { return uuid.UUID(id).String() }
func (id EntryID) String() string    { return uuid.UUID(id).String() }

func (id IdentityID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id ChainID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }
