package hubrpc

import (
	"encoding/json"

	"google.golang.org/grpc/encoding"
)

// codecName is both the grpc/encoding.Codec registration name and the
// content-subtype negotiated on the wire ("application/grpc+json"). The
// hub's wire surface rides real grpc-go transport, stream multiplexing
// and status/codes machinery (§6); it just never needed hand-authored
// .pb.go files, since nothing here requires protobuf's binary framing.
const codecName = "json"

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

type jsonCodec struct{}

func (jsonCodec) Marshal(v interface{}) ([]byte, error) { return json.Marshal(v) }

func (jsonCodec) Unmarshal(data []byte, v interface{}) error { return json.Unmarshal(data, v) }

func (jsonCodec) Name() string { return codecName }
