package domain

import "errors"

var (
	ErrUserNotFound      = errors.New("user not found")
	ErrUsernameTaken     = errors.New("username already exists")
	ErrEmailTaken        = errors.New("email already registered")
	ErrFileNotFound      = errors.New("study file not found")
	ErrSessionNotFound   = errors.New("study session not found")
	ErrRequestNotFound   = errors.New("friend request not found")
	ErrRequestExists     = errors.New("friend request already exists")
	ErrSubjectNotFound   = errors.New("subject not found")
	ErrNotFriends        = errors.New("users are not friends")
	ErrInvalidToken      = errors.New("invalid or expired token")
	ErrInvalidCredential = errors.New("invalid username or password")
	ErrEmailNotVerified  = errors.New("email not verified")
)
