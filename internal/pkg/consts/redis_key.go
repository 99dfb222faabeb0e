package consts

const (
	TokenBlacklistKey    = "auth:blacklist:"
	LoginRateLimitKey    = "ratelimit:login:"
	RegisterRateLimitKey = "ratelimit:register:"
)

const (
	MessageCleanLock    = "lock:message:clean"
	ResetTokenCleanLock = "lock:reset_token:clean"
	PresenceResetLock   = "lock:presence:reset"
)
