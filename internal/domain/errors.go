package domain

import "errors"

var (
	// ErrNoQuizLoaded is returned when a session operation runs before any quiz was loaded.
	ErrNoQuizLoaded = errors.New("no quiz loaded")
	// ErrSessionActive is returned when Start is called while a session is already running.
	ErrSessionActive = errors.New("quiz session already active")
	// ErrQuizNotFound indicates the quiz content could not be loaded from the library.
	ErrQuizNotFound = errors.New("quiz not found")
)
