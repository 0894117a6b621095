package common

// Cookie names carrying the session tokens between requests.
const (
	AccessTokenCookieName  = "accessToken"
	RefreshTokenCookieName = "refreshToken"
)

// AuthorizationHeaderName and BearerPrefix describe the header fallback used
// when the access token cookie is absent.
const (
	AuthorizationHeaderName = "Authorization"
	BearerPrefix            = "Bearer "
)
