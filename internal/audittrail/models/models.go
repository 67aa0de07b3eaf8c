package models

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	id "chainaudit/pkg/domain"
)

// AuditChainContent labels the chain every audited mutation is appended to.
const AuditChainContent = "Audit Chain"

// Row is one stored record as returned by the repository. Its schema belongs
// to the caller; the audit service only reads named fields.
type Row map[string]any

// Has reports whether the row carries field at all, even with a nil value.
func (r Row) Has(field string) bool {
	_, ok := r[field]
	return ok
}

// String returns field as a string id, or "" when absent or nil.
func (r Row) String(field string) string {
	return StringValue(r[field])
}

// Filter is an equality filter on column names.
type Filter map[string]any

// StringValue renders an id-like value (string, number, []byte) as a string.
// Nil renders as "".
func StringValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []byte:
		return string(t)
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case int:
		return strconv.Itoa(t)
	case int32:
		return strconv.FormatInt(int64(t), 10)
	case int64:
		return strconv.FormatInt(t, 10)
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprint(t)
	}
}

// KeyPair is one signing key of an identity, as stored in key_pairs.
type KeyPair struct {
	PrivateKey string `json:"private_key"`
	PublicKey  string `json:"public_key"`
}

// Identity is the cryptographic subject owning an audit chain.
type Identity struct {
	ID       string
	ChainID  string
	KeyPairs []KeyPair
}

// Signer returns the first key pair, which signs every entry.
func (i Identity) Signer() (KeyPair, bool) {
	if len(i.KeyPairs) == 0 || i.KeyPairs[0].PrivateKey == "" {
		return KeyPair{}, false
	}
	return i.KeyPairs[0], true
}

// Chain is a named ledger stream belonging to an identity.
type Chain struct {
	ID         string
	ChainID    string
	IdentityID string
	Content    string
	CreatedAt  time.Time
}

// EntryContent is the record appended to the ledger for one mutation.
type EntryContent struct {
	Record any       `json:"record" cbor:"record"`
	Action id.Method `json:"action" cbor:"action"`
}

// AppendRequest is a signed write to a chain.
type AppendRequest struct {
	ChainID          string
	SignerPrivateKey string
	SignerChainID    string
	Content          EntryContent
	ParentRef        string
}

// Entry is what a ledger returns after a durable append.
type Entry struct {
	ID         string
	ChainID    string
	ParentRef  string
	Signature  []byte
	Hash       string
	PrevHash   string
	Payload    []byte
	AppendedAt time.Time
}

// OutcomeStatus describes what happened to the entry of one mutation.
type OutcomeStatus string

const (
	OutcomeAppended OutcomeStatus = "appended"
	OutcomeQueued   OutcomeStatus = "queued"
	OutcomeSkipped  OutcomeStatus = "skipped"
	OutcomeFailed   OutcomeStatus = "failed"
)

// Outcome reports the audit side of a mutation. Err is set only when Status
// is OutcomeFailed.
type Outcome struct {
	Status  OutcomeStatus
	OwnerID string
	Action  id.Method
	Err     error
}

// BuildRequest asks the entry builder to append Content to the audit chain of
// the OwnerModel row with id OwnerID.
type BuildRequest struct {
	OwnerID    string
	OwnerModel string
	Content    EntryContent
}
