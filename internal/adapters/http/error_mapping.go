package httpadapter

import (
	"net/http"

	"github.com/stigtools/stig-rag/internal/core/domain"
)

func mapErrorToHTTPStatus(err error) int {
	switch {
	case domain.IsKind(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case domain.IsKind(err, domain.ErrInvalidFormat):
		return http.StatusBadRequest
	case domain.IsKind(err, domain.ErrControlNotFound):
		return http.StatusNotFound
	case domain.IsKind(err, domain.ErrCorpusNotLoaded):
		return http.StatusConflict
	case domain.IsKind(err, domain.ErrTemporary):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
