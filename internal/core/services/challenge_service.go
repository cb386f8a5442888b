package services

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"math/rand"
	"strings"

	"github.com/rpgmem/ffcertificate-sub002/internal/core/domain"
)

// ChallengeService gera e verifica o desafio aritmético e o honeypot.
// No server-side state is kept; the hash round-trips through the client.
type ChallengeService struct {
	salt    string
	operand func() int
}

// NewChallengeService cria o serviço com o salt fixo usado no digest da resposta.
func NewChallengeService(salt string) (*ChallengeService, error) {
	if strings.TrimSpace(salt) == "" {
		return nil, fmt.Errorf("challenge salt is required")
	}
	return &ChallengeService{
		salt:    salt,
		operand: func() int { return rand.Intn(9) + 1 },
	}, nil
}

// Generate sorteia dois operandos de 1 a 9.
func (s *ChallengeService) Generate() domain.Challenge {
	a, b := s.operand(), s.operand()
	answer := a + b
	return domain.Challenge{
		Label:  fmt.Sprintf("How much is %d + %d?", a, b),
		Hash:   s.digest(fmt.Sprintf("%d", answer)),
		Answer: answer,
	}
}

// VerifyAnswer falha fechado quando qualquer entrada está vazia.
func (s *ChallengeService) VerifyAnswer(answer, hash string) bool {
	answer = strings.TrimSpace(answer)
	hash = strings.TrimSpace(hash)
	if answer == "" || hash == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(s.digest(answer)), []byte(hash)) == 1
}

// ValidateSecurityFields devolve nil quando os campos passam, ou um *domain.SecurityError.
func (s *ChallengeService) ValidateSecurityFields(fields domain.SecurityFields) error {
	if strings.TrimSpace(fields.Honeypot) != "" {
		return domain.ErrHoneypotFilled
	}
	if strings.TrimSpace(fields.Answer) == "" || strings.TrimSpace(fields.Hash) == "" {
		return domain.ErrChallengeMissing
	}
	if !s.VerifyAnswer(fields.Answer, fields.Hash) {
		return domain.ErrChallengeIncorrect
	}
	return nil
}

func (s *ChallengeService) digest(answer string) string {
	sum := sha256.Sum256([]byte(answer + s.salt))
	return hex.EncodeToString(sum[:])
}
