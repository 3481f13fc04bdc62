package http

import (
	"errors"

	apperrors "github.com/lorrc/cas-server/internal/core/errors"
)

// casErrorCode maps a domain error to the CAS wire error code and a
// human-readable message for the failure element of a 2.0 response (or the
// discarded-on-1.0 equivalent).
func casErrorCode(err error) (code, message string) {
	switch {
	case errors.Is(err, apperrors.ErrServiceRequired),
		errors.Is(err, apperrors.ErrTicketRequired):
		return codeInvalidRequest, "ticket and service parameters are required"
	case errors.Is(err, apperrors.ErrTicketNotFound),
		errors.Is(err, apperrors.ErrTicketConsumed),
		errors.Is(err, apperrors.ErrTicketExpired),
		errors.Is(err, apperrors.ErrTicketWrongKind):
		return codeInvalidTicket, "ticket is not valid"
	case errors.Is(err, apperrors.ErrServiceMismatch):
		return codeInvalidService, "service does not match ticket"
	case errors.Is(err, apperrors.ErrPGTNotFound):
		return codeBadPGT, "invalid proxy-granting ticket"
	default:
		return codeInternalError, "an internal error occurred"
	}
}
