package middleware

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/sessions"
)

const (
	SessionCookieName = "storefront_session"
	SessionIDKey      = "session_id"
	sessionValueKey   = "id"
)

// NewCookieStore prépare le store de cookies signés
func NewCookieStore(secret string, secure bool) *sessions.CookieStore {
	store := sessions.NewCookieStore([]byte(secret))
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   30 * 24 * 3600,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
	return store
}

// Session garantit un identifiant de session (cookie storefront_session) et
// le publie dans le contexte sous "session_id"
func Session(store sessions.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess, err := store.Get(c.Request, SessionCookieName)
		if err != nil {
			// Cookie illisible (secret changé) : on repart d'une session neuve
			log.Printf("⚠️ Cookie de session invalide, régénération: %v", err)
		}

		id, _ := sess.Values[sessionValueKey].(string)
		if id == "" {
			id = uuid.NewString()
			sess.Values[sessionValueKey] = id
			if err := sess.Save(c.Request, c.Writer); err != nil {
				log.Printf("❌ Erreur écriture cookie de session: %v", err)
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Session indisponible"})
				c.Abort()
				return
			}
		}

		c.Set(SessionIDKey, id)
		c.Next()
	}
}
