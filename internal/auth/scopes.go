package auth

// Known OAuth scopes used by the coaching service.
const (
	ScopePlansRead     = "plans:read"
	ScopePlansWrite    = "plans:write"
	ScopeSessionsRead  = "sessions:read"
	ScopeSessionsWrite = "sessions:write"
)
