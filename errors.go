package lendconsole

import "errors"

var (
	// ErrIncompleteResponse is returned by Login when the server's reply lacks
	// a token, username or role.
	ErrIncompleteResponse = errors.New("incomplete auth response")
	// ErrPersist is returned by Login when the credential could not be
	// written to the session store. Previously stored values are restored.
	ErrPersist = errors.New("session persist failed")
	// ErrNotAuthenticated is reported when a guarded operation runs without an
	// active session.
	ErrNotAuthenticated = errors.New("not authenticated")
	// ErrBuilderReused is returned when Build is called twice on one Builder.
	ErrBuilderReused = errors.New("builder already used")
	// ErrStoreConfig is returned by Build when no session store can be
	// constructed from the configuration.
	ErrStoreConfig = errors.New("invalid session store configuration")
)
