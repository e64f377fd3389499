package grpcjson

import (
	"github.com/dwikikusuma/codshop/pkg/apperr"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Status converts an application error into a gRPC status error. Unknown
// errors are reported as Internal without leaking their text.
func Status(err error) error {
	if err == nil {
		return nil
	}
	switch apperr.Kind(err) {
	case apperr.KindValidation, apperr.KindInsufficientStock:
		return status.Error(codes.InvalidArgument, err.Error())
	case apperr.KindNotFound:
		return status.Error(codes.NotFound, err.Error())
	case apperr.KindNotAuthorized:
		return status.Error(codes.PermissionDenied, err.Error())
	case apperr.KindConflict:
		return status.Error(codes.Aborted, err.Error())
	default:
		return status.Error(codes.Internal, "internal error")
	}
}
