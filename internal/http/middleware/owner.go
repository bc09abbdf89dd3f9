package middleware

import "github.com/gin-gonic/gin"

const (
	ownerKey = "ownerID"

	// ownerHeader carries the caller's stable identity. The browser client
	// sends the pseudonymous id it generated on first run; authenticated
	// deployments put the account id here instead.
	ownerHeader = "X-Owner-ID"

	// defaultOwner backs requests that carry no identity at all, matching
	// the single-profile behavior of a fresh local install.
	defaultOwner = "local"
)

// Owner resolves the request's owner identity from X-Owner-ID and stores it
// in the Gin context. Absent headers fall back to the local profile rather
// than failing, so an unconfigured client still gets a working store.
func Owner() gin.HandlerFunc {
	return func(c *gin.Context) {
		owner := c.GetHeader(ownerHeader)
		if owner == "" {
			owner = defaultOwner
		}
		c.Set(ownerKey, owner)
		c.Next()
	}
}

// OwnerFrom returns the owner identity resolved by Owner. It never returns
// an empty string.
func OwnerFrom(c *gin.Context) string {
	if v, ok := c.Get(ownerKey); ok {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	return defaultOwner
}
