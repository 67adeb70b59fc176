package auth

import (
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestHashPasswordSaltsEveryHash(t *testing.T) {
	first, err := HashPassword("Sw0rdfish!", bcrypt.MinCost)
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	second, err := HashPassword("Sw0rdfish!", bcrypt.MinCost)
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if first == second {
		t.Fatal("expected distinct hashes for the same secret")
	}
	if err := CheckPassword(first, "Sw0rdfish!"); err != nil {
		t.Fatalf("CheckPassword first: %v", err)
	}
	if err := CheckPassword(second, "Sw0rdfish!"); err != nil {
		t.Fatalf("CheckPassword second: %v", err)
	}
	if err := CheckPassword(first, "sw0rdfish!"); err == nil {
		t.Fatal("expected mismatch for wrong secret")
	}
}
