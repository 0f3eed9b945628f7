package httpadapter

import (
	"net/http"

	"github.com/Meirbek-dev/tou-intake/internal/core/domain"
)

func mapErrorToHTTPStatus(err error) int {
	switch {
	case domain.IsKind(err, domain.ErrBusy):
		return http.StatusConflict
	case domain.IsKind(err, domain.ErrValidationRejected):
		return http.StatusUnprocessableEntity
	case domain.IsKind(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case domain.IsKind(err, domain.ErrSessionNotFound),
		domain.IsKind(err, domain.ErrRecordNotFound):
		return http.StatusNotFound
	case domain.IsKind(err, domain.ErrSessionLimit),
		domain.IsKind(err, domain.ErrTemporary):
		return http.StatusServiceUnavailable
	case domain.IsKind(err, domain.ErrUploadTransport),
		domain.IsKind(err, domain.ErrDeleteTransport):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
