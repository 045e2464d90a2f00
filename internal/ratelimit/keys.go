package ratelimit

// KeyPrefix namespaces rate limit counters in the shared store
const KeyPrefix = "rate_limit:"

// Key derives the counter key for a request. Authenticated callers get one
// budget per identity and path, anonymous callers one budget per origin address.
func Key(scope Scope, identity, path string) string {
	if scope == ScopeAuthenticated {
		return KeyPrefix + "auth:" + identity + ":" + path
	}
	return KeyPrefix + "unauth:" + identity
}
