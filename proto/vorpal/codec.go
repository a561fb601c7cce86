package vorpal

import (
	"encoding/json"
	"fmt"

	"google.golang.org/grpc/encoding"
)

// codecName is negotiated as the gRPC content-subtype for every service in
// this package. Real protoc-gen-go output rides the default "proto" codec;
// since no protoc run produced reflection-capable message descriptors for
// the types in messages.go, this JSON codec is registered globally in init
// (encoding.RegisterCodec) and every client stub requests it with
// grpc.CallContentSubtype; servers set no codec option and pick it up by
// the request's content-subtype — see DESIGN.md.
const codecName = "vorpal-json"

type jsonCodec struct{}

func (jsonCodec) Marshal(v interface{}) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("vorpal: marshal: %w", err)
	}
	return b, nil
}

func (jsonCodec) Unmarshal(data []byte, v interface{}) error {
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("vorpal: unmarshal: %w", err)
	}
	return nil
}

func (jsonCodec) Name() string { return codecName }

func init() {
	encoding.RegisterCodec(jsonCodec{})
}
