// hashpw prints the bcrypt hash of a secret so a first administrator
// can be seeded into the identities table by hand.
package main

import (
	"flag"
	"fmt"
	"log"

	"gatehouse.org/internal/auth"
	"gatehouse.org/internal/identity"
	"gatehouse.org/internal/ids"
)

func main() {
	secret := flag.String("secret", "", "secret to hash")
	username := flag.String("username", "", "optional: also print an INSERT for this username")
	cost := flag.Int("cost", 12, "bcrypt cost")
	flag.Parse()

	if *secret == "" {
		log.Fatal("-secret is required")
	}

	hash, err := auth.HashPassword(*secret, *cost)
	if err != nil {
		log.Fatalf("hash: %v", err)
	}
	fmt.Println(hash)

	if *username != "" {
		fmt.Printf("\ninsert into identities (id, username, password_hash, role, active)\nvalues ('%s', '%s', '%s', '%s', true);\n",
			ids.New(), *username, hash, identity.RoleAdmin)
	}
}
