package middleware

import (
	"fmt"
	"lms/config"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"
)

// Claims is the payload of an access token. Role travels in the token so
// role checks can reject a request before touching the database.
type Claims struct {
	UserID uint   `json:"userId"`
	Name   string `json:"name"`
	Role   string `json:"role"`
	Email  string `json:"email"`
	Mobile string `json:"mobile"`
	jwt.RegisteredClaims
}

func tokenTTL() time.Duration {
	if config.AppConfig.JWTTTL > 0 {
		return time.Duration(config.AppConfig.JWTTTL) * time.Hour
	}
	return 24 * time.Hour
}

// GenerateJWT signs an HS256 access token for the user
func GenerateJWT(userID uint, name, role, email, mobile string) (string, error) {
	issuedAt := time.Now()
	claims := Claims{
		UserID: userID,
		Name:   name,
		Role:   role,
		Email:  email,
		Mobile: mobile,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   fmt.Sprintf("%d", userID),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(tokenTTL())),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(config.AppConfig.JWTKey))
}

func parseToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(config.AppConfig.JWTKey), nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, fmt.Errorf("token is not valid")
	}
	return claims, nil
}

// JWTMiddleware verifies the bearer token and stores the caller's id and role
// in c.Locals("userId") and c.Locals("role").
func JWTMiddleware(c *fiber.Ctx) error {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return JsonResponse(c, fiber.StatusUnauthorized, false, "Missing or invalid Authorization header", nil)
	}
	tokenString, found := strings.CutPrefix(authHeader, "Bearer ")
	if !found {
		return JsonResponse(c, fiber.StatusUnauthorized, false, "Invalid Authorization header format", nil)
	}

	claims, err := parseToken(tokenString)
	if err != nil {
		return JsonResponse(c, fiber.StatusUnauthorized, false, "Invalid or expired token", nil)
	}
	if claims.UserID == 0 {
		return JsonResponse(c, fiber.StatusUnauthorized, false, "Invalid token payload", nil)
	}

	c.Locals("userId", claims.UserID)
	c.Locals("role", claims.Role)
	return c.Next()
}
