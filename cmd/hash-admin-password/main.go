package main

import (
	"fmt"
	"os"

	"golang.org/x/crypto/bcrypt"
)

// Hashes an admin password for ADMIN_PASSWORD_HASH. The server only ever
// sees the bcrypt hash.
func main() {
	if len(os.Args) != 2 {
		fmt.Println("Usage: hash-admin-password <password>")
		os.Exit(1)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(os.Args[1]), bcrypt.DefaultCost)
	if err != nil {
		fmt.Printf("Failed to hash password: %v\n", err)
		os.Exit(1)
	}

	fmt.Println(string(hash))
}
