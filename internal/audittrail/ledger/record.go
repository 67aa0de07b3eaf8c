package ledger

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"chainaudit/internal/audittrail/models"
)

var (
	ErrInvalidRequest = errors.New("invalid append request")
	ErrTampered       = errors.New("chain integrity check failed")
)

// Record is the sealed form of one entry as a ledger stores it.
type Record struct {
	EntryID       string    `json:"entry_id" cbor:"entry_id"`
	ChainID       string    `json:"chain_id" cbor:"chain_id"`
	ParentRef     string    `json:"parent_ref" cbor:"parent_ref"`
	SignerChainID string    `json:"signer_chain_id" cbor:"signer_chain_id"`
	PublicKey     string    `json:"public_key" cbor:"public_key"`
	Encoding      string    `json:"encoding" cbor:"encoding"`
	Content       []byte    `json:"content" cbor:"content"`
	PrevHash      string    `json:"prev_hash" cbor:"prev_hash"`
	Hash          string    `json:"hash" cbor:"hash"`
	Signature     []byte    `json:"signature" cbor:"signature"`
	AppendedAt    time.Time `json:"appended_at" cbor:"appended_at"`
}

// seal encodes the content, links it to prevHash and signs the digest.
func seal(codec Codec, req models.AppendRequest, prevHash string, now time.Time) (Record, error) {
	if req.ChainID == "" {
		return Record{}, fmt.Errorf("%w: chain id is required", ErrInvalidRequest)
	}
	content, err := codec.Marshal(req.Content)
	if err != nil {
		return Record{}, fmt.Errorf("%w: encode content: %v", ErrInvalidRequest, err)
	}
	hash := Digest(prevHash, req.ChainID, req.ParentRef, req.SignerChainID, content)
	sig, pub, err := Sign(req.SignerPrivateKey, hash)
	if err != nil {
		return Record{}, err
	}
	return Record{
		EntryID:       uuid.NewString(),
		ChainID:       req.ChainID,
		ParentRef:     req.ParentRef,
		SignerChainID: req.SignerChainID,
		PublicKey:     PublicKeyString(pub),
		Encoding:      codec.Name(),
		Content:       content,
		PrevHash:      prevHash,
		Hash:          hash,
		Signature:     sig,
		AppendedAt:    now,
	}, nil
}

// Verify recomputes the digest and checks the signature.
func (r Record) Verify() error {
	if want := Digest(r.PrevHash, r.ChainID, r.ParentRef, r.SignerChainID, r.Content); want != r.Hash {
		return fmt.Errorf("%w: entry %s hash mismatch", ErrTampered, r.EntryID)
	}
	pub, err := ParsePublicKey(r.PublicKey)
	if err != nil {
		return fmt.Errorf("%w: entry %s: %v", ErrTampered, r.EntryID, err)
	}
	if !ed25519.Verify(pub, []byte(r.Hash), r.Signature) {
		return fmt.Errorf("%w: entry %s signature mismatch", ErrTampered, r.EntryID)
	}
	return nil
}

func (r Record) Entry() models.Entry {
	return models.Entry{
		ID:         r.EntryID,
		ChainID:    r.ChainID,
		ParentRef:  r.ParentRef,
		Signature:  r.Signature,
		Hash:       r.Hash,
		PrevHash:   r.PrevHash,
		Payload:    r.Content,
		AppendedAt: r.AppendedAt,
	}
}

// verifyChain checks every record and its link to the previous one.
func verifyChain(records []Record) error {
	prev := ""
	for _, r := range records {
		if r.PrevHash != prev {
			return fmt.Errorf("%w: entry %s does not follow %s", ErrTampered, r.EntryID, prev)
		}
		if err := r.Verify(); err != nil {
			return err
		}
		prev = r.Hash
	}
	return nil
}
