package domain

// Principal is the authenticated identity attached to a single request.
// It is loaded per request and never cached across requests.
type Principal struct {
	Subject  string
	UserID   int64
	Username string
}
