package client

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrNotFound the backend answered, but the requested page or token does not exist
var ErrNotFound = errors.New("not found")

// TransportError the backend could not be reached or answered with a non 2xx status
type TransportError struct {
	Endpoint string
	Status   int // 0 if there was no response at all
	Err      error
}

func (e *TransportError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("backend %s unreachable: %v", e.Endpoint, e.Err)
	}
	return fmt.Sprintf("backend %s replied with status %d", e.Endpoint, e.Status)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// IsTransport is the error a transport failure
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// IsNotFound is the error a not found answer
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
