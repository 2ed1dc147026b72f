package hubrpc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/encoding"
)

func TestJSONCodecRegisteredUnderName(t *testing.T) {
	c := encoding.GetCodec(codecName)
	require.NotNil(t, c)
	assert.Equal(t, "json", c.Name())
}

func TestJSONCodecRoundTripsWireTypes(t *testing.T) {
	c := jsonCodec{}

	in := &GetInfoResponse{Version: "v1.2.3", Commit: "abc123", Nickname: "hub-a", IsSynced: true, RootHash: "deadbeef"}
	b, err := c.Marshal(in)
	require.NoError(t, err)

	out := new(GetInfoResponse)
	require.NoError(t, c.Unmarshal(b, out))
	assert.Equal(t, in, out)
}

func TestJSONCodecRoundTripsNestedSliceFields(t *testing.T) {
	c := jsonCodec{}

	in := &MessagesResponse{Messages: []*WireMessage{
		{Fid: 1, Type: 1, Timestamp: 100, Hash: []byte{1, 2, 3}, Payload: []byte("payload")},
		{Fid: 2, Type: 2, Timestamp: 200, Hash: []byte{4, 5, 6}, Payload: nil},
	}}
	b, err := c.Marshal(in)
	require.NoError(t, err)

	out := new(MessagesResponse)
	require.NoError(t, c.Unmarshal(b, out))
	require.Len(t, out.Messages, 2)
	assert.Equal(t, in.Messages[0].Fid, out.Messages[0].Fid)
	assert.Equal(t, in.Messages[1].Hash, out.Messages[1].Hash)
}
