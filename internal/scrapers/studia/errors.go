package studia

import "errors"

var (
	// ErrUnreachable means the host of the base url could not be resolved.
	ErrUnreachable = errors.New("studia: endpoint unreachable")
	// ErrWrongEndpoint means the base url or the url it redirected to is a known parked domain.
	ErrWrongEndpoint = errors.New("studia: wrong endpoint")
	// ErrLoginFormNotFound means no form on the landing page has both a username and a password field.
	ErrLoginFormNotFound = errors.New("studia: login form not found")
	// ErrLoginRejected means the login check failed on the page returned after submitting credentials.
	ErrLoginRejected = errors.New("studia: login rejected")
	// ErrTransport is any request that failed, timed out or returned a non-2xx status.
	ErrTransport = errors.New("studia: transport failure")
	// ErrMalformedPayload is a catalog page that is not valid json.
	ErrMalformedPayload = errors.New("studia: malformed payload")
)
