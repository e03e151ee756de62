package httpx

import (
	"errors"
	"net/http"

	"github.com/tahiry-mg/tahiry/internal/shared"
)

// RespondError maps domain errors to HTTP responses using RFC7807.
func RespondError(w http.ResponseWriter, err error) {
	var (
		validation    *shared.ValidationError
		conflict      *shared.ConflictError
		notFound      *shared.NotFoundError
		invalidState  *shared.InvalidStateError
		integrity     *shared.DataIntegrityError
		serialization *shared.SerializationError
	)
	switch {
	case errors.As(err, &validation):
		Problem(w, http.StatusBadRequest, "Validation Failed", validation.Error())
	case errors.As(err, &conflict):
		Problem(w, http.StatusConflict, "Duplicate", conflict.Error())
	case errors.As(err, &notFound):
		Problem(w, http.StatusNotFound, "Not Found", notFound.Error())
	case errors.As(err, &invalidState):
		Problem(w, http.StatusConflict, "Invalid State", invalidState.Error())
	case errors.As(err, &integrity):
		Problem(w, http.StatusUnprocessableEntity, "Data Integrity", integrity.Error())
	case errors.As(err, &serialization):
		Problem(w, http.StatusUnprocessableEntity, "Nothing To Render", serialization.Error())
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
