package middleware

import (
	"net/http"

	"mealdesk/services/store"

	"github.com/gin-gonic/gin"
)

// RequireSession rejects requests while nobody is signed in and puts the
// provider id into the context.
func RequireSession(st *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		session := st.Session()
		if !session.Authenticated() {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Sign in first"})
			return
		}
		c.Set("providerID", session.ProviderID)
		c.Next()
	}
}
