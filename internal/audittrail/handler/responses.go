package handler

import (
	"chainaudit/internal/audittrail/models"
	dErrors "chainaudit/pkg/domain-errors"
)

// OutcomeResponse reports the audit side of a mutation.
type OutcomeResponse struct {
	Status  string `json:"status"`
	OwnerID string `json:"owner_id,omitempty"`
	Action  string `json:"action,omitempty"`
	Error   string `json:"error,omitempty"`
}

func FromOutcome(o models.Outcome) OutcomeResponse {
	resp := OutcomeResponse{
		Status:  string(o.Status),
		OwnerID: o.OwnerID,
		Action:  o.Action.String(),
	}
	if o.Err != nil {
		resp.Error = string(dErrors.CodeOf(o.Err))
	}
	return resp
}

type ChainResponse struct {
	ID      string `json:"id"`
	ChainID string `json:"chain_id"`
}

// IdentityResponse never carries private keys.
type IdentityResponse struct {
	ID         string        `json:"id"`
	ChainID    string        `json:"chain_id"`
	PublicKeys []string      `json:"public_keys"`
	AuditChain ChainResponse `json:"audit_chain"`
}

func FromIdentity(identity models.Identity, chain models.Chain) IdentityResponse {
	keys := make([]string, 0, len(identity.KeyPairs))
	for _, kp := range identity.KeyPairs {
		keys = append(keys, kp.PublicKey)
	}
	return IdentityResponse{
		ID:         identity.ID,
		ChainID:    identity.ChainID,
		PublicKeys: keys,
		AuditChain: FromChain(chain),
	}
}

func FromChain(chain models.Chain) ChainResponse {
	return ChainResponse{ID: chain.ID, ChainID: chain.ChainID}
}
