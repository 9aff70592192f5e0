package handler

const (
	errInternalServer     = "Internal server error"
	errEmailTaken         = "User with this email already exists"
	errInvalidCredentials = "Invalid email or password"
	errNoActiveAccount    = "No active account found with this email"
	errLinkInvalid        = "Magic link is invalid, expired, or already used"

	msgMagicLinkSent = "Magic link sent to your email"
)
