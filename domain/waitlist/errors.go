package waitlist

import "errors"

var (
	ErrDuplicateEmail = errors.New("email already exists on waitlist")
	ErrSignupNotFound = errors.New("waitlist signup not found")
)

const duplicateEmailMessage = "This email is already on the waitlist"
