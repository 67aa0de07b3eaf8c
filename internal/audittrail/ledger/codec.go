package ledger

import (
	"encoding/json"
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// Codec serializes entry content before it is hashed and signed. Encodings
// must be deterministic so the same content always hashes the same way.
type Codec interface {
	Name() string
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
}

const (
	EncodingJSON = "json"
	EncodingCBOR = "cbor"
)

// NewCodec returns the codec for a configured encoding name.
func NewCodec(name string) (Codec, error) {
	switch name {
	case "", EncodingJSON:
		return jsonCodec{}, nil
	case EncodingCBOR:
		mode, err := cbor.CoreDetEncOptions().EncMode()
		if err != nil {
			return nil, fmt.Errorf("build cbor encoder: %w", err)
		}
		return cborCodec{enc: mode}, nil
	default:
		return nil, fmt.Errorf("unsupported entry encoding %q", name)
	}
}

// jsonCodec relies on encoding/json sorting map keys.
type jsonCodec struct{}

func (jsonCodec) Name() string                       { return EncodingJSON }
func (jsonCodec) Marshal(v any) ([]byte, error)      { return json.Marshal(v) }
func (jsonCodec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }

type cborCodec struct {
	enc cbor.EncMode
}

func (cborCodec) Name() string                       { return EncodingCBOR }
func (c cborCodec) Marshal(v any) ([]byte, error)    { return c.enc.Marshal(v) }
func (cborCodec) Unmarshal(data []byte, v any) error { return cbor.Unmarshal(data, v) }
