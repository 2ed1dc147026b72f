package huberrs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"google.golang.org/grpc/codes"
)

func TestGRPCCodeMapsTaxonomyPerSpec(t *testing.T) {
	cases := []struct {
		code Code
		want codes.Code
	}{
		{CodeUnauthenticated, codes.Unauthenticated},
		{CodeUnauthorized, codes.PermissionDenied},
		{CodeBadRequest, codes.InvalidArgument},
		{CodeBadRequestParse, codes.InvalidArgument},
		{CodeBadRequestInvalid, codes.InvalidArgument},
		{CodeBadRequestDup, codes.InvalidArgument},
		{CodeBadRequestConflict, codes.InvalidArgument},
		{CodeNotFound, codes.NotFound},
		{CodeUnavailable, codes.Unavailable},
		{CodeUnavailableNet, codes.Unavailable},
		{CodeUnavailableStore, codes.Unavailable},
		{CodeUnknown, codes.Unknown},
		{Code("something_unmapped"), codes.Unknown},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, GRPCCode(c.code), "code %q", c.code)
	}
}
