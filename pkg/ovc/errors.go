package ovc

import "fmt"

// ErrNumberNotFound is the description the cadastre returns when a street
// number has no property registered.
const ErrNumberNotFound = "EL NUMERO NO EXISTE"

// ServiceError is an error reported by the OVC service inside a successful
// HTTP response (the lerr/err element).
type ServiceError struct {
	Code        string
	Description string
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("ovc: service error %s: %s", e.Code, e.Description)
}

// ResponseError returns the first service error carried by the response
// under <root>/lerr/err, or nil when the response reports none.
func ResponseError(t Tree) *ServiceError {
	for _, root := range t {
		body, ok := asTree(root)
		if !ok {
			continue
		}
		errs := body.List("lerr", "err")
		if len(errs) == 0 {
			continue
		}
		return &ServiceError{
			Code:        errs[0].String("cod"),
			Description: errs[0].String("des"),
		}
	}
	return nil
}
