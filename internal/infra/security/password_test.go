package security

import "testing"

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := HashPassword("correct horse battery staple")
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}

	ok, err := VerifyPassword("correct horse battery staple", hash)
	if err != nil {
		t.Fatalf("verify password: %v", err)
	}
	if !ok {
		t.Fatal("expected the original password to verify")
	}

	ok, err = VerifyPassword("wrong password", hash)
	if err != nil {
		t.Fatalf("verify wrong password: %v", err)
	}
	if ok {
		t.Fatal("expected a wrong password to fail verification")
	}
}

func TestVerifyPasswordEmptyInputs(t *testing.T) {
	if ok, err := VerifyPassword("", "whatever"); err != nil || ok {
		t.Fatalf("expected empty password to fail cleanly, got ok=%v err=%v", ok, err)
	}
	if ok, err := VerifyPassword("pass", ""); err != nil || ok {
		t.Fatalf("expected empty hash to fail cleanly, got ok=%v err=%v", ok, err)
	}
}

func TestVerifyPasswordMalformedHash(t *testing.T) {
	if _, err := VerifyPassword("pass", "not-a-valid-hash"); err == nil {
		t.Fatal("expected an error for a malformed stored hash")
	}
}

func TestHashPasswordSaltsDiffer(t *testing.T) {
	a, err := HashPassword("same password")
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	b, err := HashPassword("same password")
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	if a == b {
		t.Fatal("expected distinct salts to produce distinct encodings")
	}
}
