package fetch

import (
	"encoding/json"

	"github.com/NathanNam/caltrain-commuter-app/errors"
	"github.com/NathanNam/caltrain-commuter-app/validation"
)

// Parser turns a response body into a value.
type Parser[T any] func(body []byte) (T, error)

// JSON returns a parser that decodes a JSON body into T. With validate set
// the decoded value is checked against its `validate` struct tags.
func JSON[T any](validate bool) Parser[T] {
	return func(body []byte) (T, error) {
		var v T
		if err := json.Unmarshal(body, &v); err != nil {
			return v, errors.Parse("json payload", err)
		}
		if validate {
			if err := validation.Validate(v); err != nil {
				return v, err
			}
		}
		return v, nil
	}
}

// Bytes returns the body unchanged.
func Bytes(body []byte) ([]byte, error) {
	return body, nil
}
