package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/safar/b2b-ordering/internal/models"
)

const currentUserKey = "current_user"

// AuthMiddleware turns a bearer token into the CurrentUser every order
// operation receives. Claims: user_id, role, and company_id for clients.
func AuthMiddleware(secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abort(c, http.StatusUnauthorized, "Authorization header required", "Please provide a valid authorization token")
			return
		}

		tokenParts := strings.Split(authHeader, " ")
		if len(tokenParts) != 2 || tokenParts[0] != "Bearer" {
			abort(c, http.StatusUnauthorized, "Invalid authorization format", "Authorization header must be in format 'Bearer <token>'")
			return
		}

		token, err := jwt.Parse(tokenParts[1], func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return secret, nil
		})
		if err != nil || !token.Valid {
			abort(c, http.StatusUnauthorized, "Invalid token", "The provided token is invalid or expired")
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			abort(c, http.StatusUnauthorized, "Invalid token", "Unreadable token claims")
			return
		}

		user, ok := currentUserFromClaims(claims)
		if !ok {
			abort(c, http.StatusUnauthorized, "Invalid token", "Token does not identify a user with a known role")
			return
		}

		c.Set(currentUserKey, user)
		c.Next()
	}
}

func currentUserFromClaims(claims jwt.MapClaims) (models.CurrentUser, bool) {
	id, ok := numericClaim(claims, "user_id")
	if !ok || id <= 0 {
		return models.CurrentUser{}, false
	}

	roleCode, ok := numericClaim(claims, "role")
	if !ok {
		return models.CurrentUser{}, false
	}
	role, err := models.ParseRole(int(roleCode))
	if err != nil {
		return models.CurrentUser{}, false
	}

	user := models.CurrentUser{ID: id, Role: role}
	if companyID, ok := numericClaim(claims, "company_id"); ok {
		user.CompanyID = &companyID
	}

	return user, true
}

// numericClaim reads JSON numbers, which decode as float64.
func numericClaim(claims jwt.MapClaims, key string) (int64, bool) {
	v, ok := claims[key].(float64)
	if !ok || v != float64(int64(v)) {
		return 0, false
	}
	return int64(v), true
}

func CurrentUser(c *gin.Context) (models.CurrentUser, bool) {
	v, exists := c.Get(currentUserKey)
	if !exists {
		return models.CurrentUser{}, false
	}
	user, ok := v.(models.CurrentUser)
	return user, ok
}

func abort(c *gin.Context, status int, errMsg, message string) {
	c.AbortWithStatusJSON(status, ErrorResponse{Error: errMsg, Message: message})
}
