package main

import (
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// AdminJWTClaims mirrors the claims the admin middleware validates
type AdminJWTClaims struct {
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// Generates a 24h admin token for local testing without going through
// the login flow.
func main() {
	secret := os.Getenv("ADMIN_JWT_SECRET")
	if secret == "" {
		secret = "revoke-backend-admin-jwt-default-change-me"
	}

	username := "admin"
	if len(os.Args) > 1 {
		username = os.Args[1]
	}

	now := time.Now()
	claims := AdminJWTClaims{
		Username: username,
		Role:     "admin",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(24 * time.Hour)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    "revoke-backend-admin",
			Subject:   username,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(secret))
	if err != nil {
		fmt.Printf("Error generating token: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("============================================================")
	fmt.Printf("Admin token for %s (valid 24h):\n", username)
	fmt.Println(tokenString)
	fmt.Println("============================================================")
}
