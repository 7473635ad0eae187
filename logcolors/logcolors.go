package logcolors

// ANSI color codes for log prefixes
const (
	Reset  = "\033[0m"
	Green  = "\033[32m"
	Blue   = "\033[34m"
	Purple = "\033[35m"
	Cyan   = "\033[36m"
	Yellow = "\033[33m"
)

// Cache-related log prefixes
const (
	LogCache             = Blue + "[Cache]" + Reset
	LogCacheInvalidation = Blue + "[Cache:Invalidation]" + Reset
	LogCacheDump         = Blue + "[Cache:Dump]" + Reset
)

// Backend client log prefixes
const (
	LogBackend = Green + "[Backend]" + Reset
	LogHealth  = Green + "[Backend:Health]" + Reset
	LogRetry   = Yellow + "[Backend:Retry]" + Reset
)

// Domain log prefixes
const (
	LogEvents    = Cyan + "[Events]" + Reset
	LogBets      = Cyan + "[Bets]" + Reset
	LogAuth      = Cyan + "[Auth]" + Reset
	LogDashboard = Cyan + "[Dashboard]" + Reset
	LogAudit     = Purple + "[Audit]" + Reset
)

// Middleware log prefixes
const (
	LogRateLimit = Purple + "[RateLimit]" + Reset
	LogRequest   = Purple + "[Request]" + Reset
)

// CircuitBreakerPrefix returns a colored circuit breaker prefix with the given name
func CircuitBreakerPrefix(name string) string {
	return Purple + "[CircuitBreaker:" + name + "]" + Reset
}
