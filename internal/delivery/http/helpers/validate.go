package helpers

import (
	"encoding/json"
	"net/http"
	"strings"
)

// Validator is implemented by request bodies that carry their own
// field checks. Validate returns error messages; empty means valid.
type Validator interface {
	Validate() []string
}

// DecodeAndValidate decodes the request body into dest with unknown
// fields rejected, then runs Validate if dest implements Validator.
// On any failure it writes a 400 envelope and returns false; the
// caller must return immediately in that case.
func DecodeAndValidate(w http.ResponseWriter, r *http.Request, dest any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dest); err != nil {
		WriteJSONError(w, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
		return false
	}
	if v, ok := dest.(Validator); ok {
		if errs := v.Validate(); len(errs) > 0 {
			WriteJSONError(w, http.StatusBadRequest, ErrCodeBadRequest, strings.Join(errs, "; "))
			return false
		}
	}
	return true
}
