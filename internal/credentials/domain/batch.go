package domain

// BatchResult is the outcome of one batch item.
type BatchResult[T any] struct {
	ID    CredentialID
	Value T
	Err   error
}

// BatchResults holds one result per input, in input order.
type BatchResults[T any] []BatchResult[T]

// Succeeded counts items without an error.
func (r BatchResults[T]) Succeeded() int {
	n := 0
	for _, item := range r {
		if item.Err == nil {
			n++
		}
	}
	return n
}

// Failed counts items with an error.
func (r BatchResults[T]) Failed() int {
	return len(r) - r.Succeeded()
}

// Err aggregates failures into a *BatchError, or returns nil when every item succeeded.
func (r BatchResults[T]) Err() error {
	var failures []ItemError
	for _, item := range r {
		if item.Err != nil {
			failures = append(failures, ItemError{ID: item.ID, Err: item.Err})
		}
	}
	if len(failures) == 0 {
		return nil
	}
	return &BatchError{
		Succeeded: len(r) - len(failures),
		Failed:    len(failures),
		Failures:  failures,
	}
}
