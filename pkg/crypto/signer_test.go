package crypto

import (
	"errors"
	"testing"
)

func TestSigner_SignCashflowRoundTrip(t *testing.T) {
	s := NewSigner("secret", nil)

	sig := s.SignCashflow("Meryl Lynch PLC", "USD", 100.5, "2026-10-27")

	if err := s.VerifyCashflow("Meryl Lynch PLC", "USD", 100.5, "2026-10-27", sig); err != nil {
		t.Fatalf("expected signature to verify, got %v", err)
	}
}

func TestSigner_TamperedCashflow(t *testing.T) {
	s := NewSigner("secret", nil)
	sig := s.SignCashflow("Meryl Lynch PLC", "USD", 100.5, "2026-10-27")

	err := s.VerifyCashflow("Meryl Lynch PLC", "USD", 1000.5, "2026-10-27", sig)

	if !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature, got %v", err)
	}
}

func TestSigner_DifferentKeys(t *testing.T) {
	sig := NewSigner("one", nil).Sign([]byte("payload"))

	if err := NewSigner("two", nil).Verify([]byte("payload"), sig); err == nil {
		t.Fatal("expected verification with a different key to fail")
	}
}
