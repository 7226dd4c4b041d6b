package models

// TokenPayload is the set of claims embedded in both access and refresh tokens.
type TokenPayload struct {
	UserID string
	Email  string
}

// TokenPair bundles a short-lived access token and a long-lived refresh token.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}
