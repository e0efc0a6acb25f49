package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"couple_compass_go_backend/internal/models"
	"couple_compass_go_backend/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

func SetupRoutes(r *gin.Engine, userService *services.UserService, jwtSecret string) {
	authGroup := r.Group("/auth")
	{
		authGroup.GET("/user", AuthMiddleware(userService, jwtSecret), getUser)
	}
}

// AuthMiddleware verifies the caller's token, upserts the user row from its
// claims and sets the typed user on the request context. WebSocket upgrade
// requests carry the token as a query parameter since browsers cannot set
// headers on them.
func AuthMiddleware(userService *services.UserService, jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		var token string

		if websocket.IsWebSocketUpgrade(c.Request) {
			token = c.Query("token")
		} else {
			authHeader := c.GetHeader("Authorization")
			if authHeader == "" {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "Authorization header is required"})
				c.Abort()
				return
			}
			bearerToken := strings.Split(authHeader, " ")
			if len(bearerToken) != 2 {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid authorization header"})
				c.Abort()
				return
			}
			token = bearerToken[1]
		}

		claims, err := verifyToken(token, jwtSecret)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			c.Abort()
			return
		}

		sub, _ := claims["sub"].(string)
		email, _ := claims["email"].(string)
		name, _ := claims["name"].(string)
		nickname, _ := claims["nickname"].(string)
		if sub == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			c.Abort()
			return
		}

		user, err := userService.CreateOrUpdateUser(c.Request.Context(), sub, email, name, nickname)
		if err != nil {
			log.Error().Err(err).Msg("failed to upsert user from token claims")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process user information"})
			c.Abort()
			return
		}

		c.Set("user", user)
		c.Next()
	}
}

// CurrentUser pulls the authenticated user set by the middleware.
func CurrentUser(c *gin.Context) (*models.User, bool) {
	value, exists := c.Get("user")
	if !exists {
		return nil, false
	}
	user, ok := value.(*models.User)
	return user, ok
}

func getUser(c *gin.Context) {
	user, exists := c.Get("user")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not found in context"})
		return
	}
	c.JSON(http.StatusOK, user)
}

func verifyToken(tokenString, secret string) (jwt.MapClaims, error) {
	if tokenString == "" {
		return nil, errors.New("token is required")
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(jwt.MapClaims); ok && token.Valid {
		return claims, nil
	}
	return nil, errors.New("invalid token")
}
