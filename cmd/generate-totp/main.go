package main

import (
	"fmt"
	"log"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

// Generates a fresh TOTP secret for the admin login. Run once during
// setup and store the secret in ADMIN_TOTP_SECRET.
func main() {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      "Revoke Backend Admin",
		AccountName: "admin@backend",
		Period:      30,
		Digits:      otp.DigitsSix,
		Algorithm:   otp.AlgorithmSHA1,
	})
	if err != nil {
		log.Fatalf("Failed to generate TOTP secret: %v", err)
	}

	fmt.Println("============================================================")
	fmt.Printf("TOTP secret: %s\n", key.Secret())
	fmt.Printf("Provisioning URL: %s\n", key.URL())
	fmt.Println("============================================================")
	fmt.Println("Export ADMIN_TOTP_SECRET with this value and add the URL to")
	fmt.Println("your authenticator app.")
}
