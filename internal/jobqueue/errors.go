package jobqueue

import "errors"

// Handlers classify their failures so the queue knows whether another
// attempt could succeed. Unclassified errors count as retryable.

type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }

func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as non-retryable; the job fails immediately
// regardless of remaining attempts.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// Retryable marks err as transient. It exists so call sites read
// explicitly; bare errors behave the same way.
func Retryable(err error) error {
	return err
}

// IsPermanent reports whether err was marked with Permanent.
func IsPermanent(err error) bool {
	var pe *permanentError
	return errors.As(err, &pe)
}
