package api

import (
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// fieldMessages maps a struct field and failed tag to the detail sent back.
type fieldMessages map[string]map[string]string

func (s *ScoreboardApp) validateRequest(w http.ResponseWriter, req any, messages fieldMessages) bool {
	if err := validate.Struct(req); err != nil {
		errResp := NewBadRequestError()
		errResp.Detail = resolveValidationError(err, messages)
		s.writeJson(w, errResp.StatusCode, errResp)
		return false
	}

	return true
}

func resolveValidationError(err error, messages fieldMessages) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, verr := range verrs {
			if msgs, ok := messages[verr.Field()]; ok {
				if msg, ok := msgs[verr.Tag()]; ok {
					return msg
				}
			}
		}
	}

	return "invalid request"
}
