package common

// AccessTokenHeaderName is the gRPC metadata key used to carry the
// access token on outbound requests.
const AccessTokenHeaderName = "access_token"

// RefreshTokenHeaderName is the gRPC metadata key used to carry the
// refresh token when asking for a new token pair.
const RefreshTokenHeaderName = "refresh_token"
