// Package rpcutil holds the pieces every connect service in the module
// shares: the JSON codec, error mapping and caller identity.
package rpcutil

import (
	"encoding/json"
	"fmt"

	"connectrpc.com/connect"
)

// CodecName is the connect codec name; requests travel as application/json
// (unary) or application/connect+json (streaming).
const CodecName = "json"

// JSONCodec marshals plain Go structs. The services exchange request and
// response structs rather than generated messages, so the default protobuf
// codecs cannot be used.
type JSONCodec struct{}

var _ connect.Codec = JSONCodec{}

// Name implements connect.Codec
func (JSONCodec) Name() string { return CodecName }

// Marshal implements connect.Codec
func (JSONCodec) Marshal(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %T: %w", v, err)
	}
	return data, nil
}

// Unmarshal implements connect.Codec
func (JSONCodec) Unmarshal(data []byte, v any) error {
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to unmarshal %T: %w", v, err)
	}
	return nil
}

// HandlerOptions are the options every handler in the module is built with.
func HandlerOptions(opts ...connect.HandlerOption) []connect.HandlerOption {
	return append([]connect.HandlerOption{connect.WithCodec(JSONCodec{})}, opts...)
}

// ClientOptions are the options every client in the module is built with.
func ClientOptions(opts ...connect.ClientOption) []connect.ClientOption {
	return append([]connect.ClientOption{connect.WithCodec(JSONCodec{})}, opts...)
}
