package kaggle

import (
	"errors"
	"fmt"
)

// ErrUnauthorized is wrapped by APIError for 401/403 responses.
var ErrUnauthorized = errors.New("kaggle: unauthorized")

// APIError is a non-2xx response from the Kaggle API.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("kaggle: http %d", e.Status)
	}
	return fmt.Sprintf("kaggle: http %d: %s", e.Status, e.Body)
}

func (e *APIError) Unwrap() error {
	if e.Status == 401 || e.Status == 403 {
		return ErrUnauthorized
	}
	return nil
}
