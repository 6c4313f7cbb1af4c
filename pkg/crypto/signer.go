package crypto

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
)

var ErrInvalidSignature = errors.New("invalid signature")

type Signer struct {
	secretKey []byte
	logger    *slog.Logger
}

func NewSigner(secretKey string, logger *slog.Logger) *Signer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Signer{
		secretKey: []byte(secretKey),
		logger:    logger,
	}
}

func (s *Signer) Sign(data []byte) string {
	mac := hmac.New(sha256.New, s.secretKey)
	mac.Write(data)
	signature := mac.Sum(nil)
	return hex.EncodeToString(signature)
}

func (s *Signer) Verify(data []byte, signature string) error {
	expectedSignature := s.Sign(data)

	if !hmac.Equal([]byte(expectedSignature), []byte(signature)) {
		s.logger.Warn("Signature verification failed",
			slog.Int("data_length", len(data)))
		return ErrInvalidSignature
	}

	return nil
}

// SignCashflow signs the fields a submitter commits to. settlementDay uses
// domain.DateLayout.
func (s *Signer) SignCashflow(counterParty, currency string, amount float64, settlementDay string) string {
	return s.Sign(cashflowPayload(counterParty, currency, amount, settlementDay))
}

func (s *Signer) VerifyCashflow(counterParty, currency string, amount float64, settlementDay, signature string) error {
	return s.Verify(cashflowPayload(counterParty, currency, amount, settlementDay), signature)
}

func cashflowPayload(counterParty, currency string, amount float64, settlementDay string) []byte {
	return []byte(fmt.Sprintf("%s:%s:%.2f:%s", counterParty, currency, amount, settlementDay))
}
