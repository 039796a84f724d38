package identity

import "fmt"

// Code classifies an identity provider failure.
type Code string

const (
	CodeInvalidCredentials Code = "auth/wrong-password"
	CodeUserNotFound       Code = "auth/user-not-found"
	CodeInvalidEmail       Code = "auth/invalid-email"
	CodeEmailInUse         Code = "auth/email-already-in-use"
	CodeWeakPassword       Code = "auth/weak-password"
	CodeInvalidToken       Code = "auth/invalid-token"
	CodeUnknown            Code = "auth/unknown"
)

// AuthError is returned by every identity operation. Callers match the
// sentinels below with errors.Is, which compares codes only.
type AuthError struct {
	Code    Code
	Message string
	Err     error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// Is matches any AuthError carrying the same code.
func (e *AuthError) Is(target error) bool {
	t, ok := target.(*AuthError)
	return ok && t.Code == e.Code
}

var (
	ErrInvalidCredentials = &AuthError{Code: CodeInvalidCredentials, Message: "Invalid password"}
	ErrUserNotFound       = &AuthError{Code: CodeUserNotFound, Message: "User not found. Please create an account first."}
	ErrInvalidEmail       = &AuthError{Code: CodeInvalidEmail, Message: "Invalid email address"}
	ErrEmailInUse         = &AuthError{Code: CodeEmailInUse, Message: "This email address is already registered"}
	ErrWeakPassword       = &AuthError{Code: CodeWeakPassword, Message: "The password is too weak"}
	ErrInvalidToken       = &AuthError{Code: CodeInvalidToken, Message: "Invalid or expired session"}
)

// unknownError wraps a provider failure that has no specific code.
func unknownError(message string, err error) *AuthError {
	if message == "" && err != nil {
		message = err.Error()
	}
	return &AuthError{Code: CodeUnknown, Message: message, Err: err}
}
