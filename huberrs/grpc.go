package huberrs

import (
	"google.golang.org/grpc/codes"
)

// GRPCCode maps a HubError's Code onto the gRPC status code used by the
// wire façade, per §6's error taxonomy table.
func GRPCCode(code Code) codes.Code {
	switch {
	case code == CodeUnauthenticated:
		return codes.Unauthenticated
	case code == CodeUnauthorized:
		return codes.PermissionDenied
	case hasPrefix(code, CodeBadRequest):
		return codes.InvalidArgument
	case code == CodeNotFound:
		return codes.NotFound
	case hasPrefix(code, CodeUnavailable):
		return codes.Unavailable
	default:
		return codes.Unknown
	}
}

func hasPrefix(code, prefix Code) bool {
	if len(code) < len(prefix) {
		return false
	}
	return code[:len(prefix)] == prefix
}
