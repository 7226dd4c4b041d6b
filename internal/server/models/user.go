package models

import "time"

// User is the credential record owned by the users repository. The auth
// service only ever reads it after signup.
type User struct {
	ID             string
	Email          string
	Name           string
	PasswordDigest string
	CreatedAt      time.Time
}

// SignupData is what a client submits to create an account.
type SignupData struct {
	Email    string
	Password string
	Name     string
}
