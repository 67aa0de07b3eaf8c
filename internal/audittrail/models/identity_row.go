package models

import (
	"encoding/json"
	"fmt"
)

// IdentityFromRow decodes an identity row. key_pairs may arrive as decoded
// JSON ([]any of maps), raw JSON bytes or a JSON string depending on the store.
func IdentityFromRow(row Row, pk string) (Identity, error) {
	keyPairs, err := decodeKeyPairs(row["key_pairs"])
	if err != nil {
		return Identity{}, err
	}
	return Identity{
		ID:       row.String(pk),
		ChainID:  row.String("chain_id"),
		KeyPairs: keyPairs,
	}, nil
}

// ChainFromRow decodes a chain row.
func ChainFromRow(row Row, pk string) Chain {
	return Chain{
		ID:         row.String(pk),
		ChainID:    row.String("chain_id"),
		IdentityID: row.String("identity"),
		Content:    row.String("content"),
	}
}

func decodeKeyPairs(raw any) ([]KeyPair, error) {
	var data []byte
	switch v := raw.(type) {
	case nil:
		return nil, nil
	case []KeyPair:
		return v, nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("marshal key_pairs: %w", err)
		}
		data = b
	}
	if len(data) == 0 {
		return nil, nil
	}
	var pairs []KeyPair
	if err := json.Unmarshal(data, &pairs); err != nil {
		return nil, fmt.Errorf("unmarshal key_pairs: %w", err)
	}
	return pairs, nil
}
