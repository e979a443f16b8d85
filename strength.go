package fhevault

import (
	"context"
	"math"
	"time"
	"unicode"

	"github.com/fhevault/client-go/internal/api"
	"github.com/fhevault/client-go/internal/backend"
)

// ComputedOn reports where a strength result was produced.
type ComputedOn string

const (
	// ComputedOnServer means the collaborator scored the encrypted password.
	ComputedOnServer ComputedOn = "server"
	// ComputedOnClient means the local heuristic scored it after a
	// collaborator failure.
	ComputedOnClient ComputedOn = "client"
)

// StrengthResult is a password strength assessment. Score runs 0 (very
// weak) to 4 (very strong).
type StrengthResult struct {
	Score       int
	EntropyBits float64
	Feedback    []string
	ComputedOn  ComputedOn
}

// CheckPasswordStrength scores a password. The password is encrypted and
// scored by the collaborator; if the collaborator is unreachable the
// local heuristic answers instead and ComputedOn says so. Signature and
// authorization failures are never absorbed by the fallback.
func (c *Client) CheckPasswordStrength(ctx context.Context, password string) (*StrengthResult, error) {
	if password == "" {
		return nil, ErrEmptyPassword
	}

	start := time.Now()
	env, err := c.EncryptPassword(ctx, password)
	if err != nil {
		return nil, err
	}

	resp, err := c.apiClient.CheckStrength(ctx, api.StrengthRequest{Ciphertext: env})
	if err != nil {
		wrapped := wrapError("strength check", err)
		if !fallbackEligible(wrapped) {
			c.metrics.recordFailure(opStrength)
			return nil, wrapped
		}
		c.log.Warn().Err(wrapped).Msg("collaborator strength check failed, scoring locally")
		c.metrics.recordFallback()
		result := scorePasswordLocally(password)
		c.metrics.record(opStrength, time.Since(start))
		return result, nil
	}

	c.metrics.record(opStrength, time.Since(start))
	return &StrengthResult{
		Score:       resp.Score,
		EntropyBits: resp.EntropyBits,
		Feedback:    resp.Feedback,
		ComputedOn:  ComputedOnServer,
	}, nil
}

// BatchCheckStrength scores several passwords in one collaborator round
// trip. Results are returned in input order. The fallback is
// all-or-nothing: either every result comes from the collaborator or
// every result comes from the local heuristic.
func (c *Client) BatchCheckStrength(ctx context.Context, passwords []string) ([]StrengthResult, error) {
	if len(passwords) == 0 {
		return nil, nil
	}
	for _, pw := range passwords {
		if pw == "" {
			return nil, ErrEmptyPassword
		}
	}

	start := time.Now()
	items := make([]*backend.Envelope, len(passwords))
	for i, pw := range passwords {
		env, err := c.EncryptPassword(ctx, pw)
		if err != nil {
			return nil, err
		}
		items[i] = env
	}

	resp, err := c.apiClient.BatchCheckStrength(ctx, api.BatchStrengthRequest{Items: items})
	if err != nil {
		wrapped := wrapError("batch strength check", err)
		if !fallbackEligible(wrapped) {
			c.metrics.recordFailure(opStrength)
			return nil, wrapped
		}
		c.log.Warn().Err(wrapped).Msg("collaborator batch strength check failed, scoring locally")
		c.metrics.recordFallback()
		results := make([]StrengthResult, len(passwords))
		for i, pw := range passwords {
			results[i] = *scorePasswordLocally(pw)
		}
		c.metrics.record(opStrength, time.Since(start))
		return results, nil
	}

	results := make([]StrengthResult, len(resp.Results))
	for i, r := range resp.Results {
		results[i] = StrengthResult{
			Score:       r.Score,
			EntropyBits: r.EntropyBits,
			Feedback:    r.Feedback,
			ComputedOn:  ComputedOnServer,
		}
	}
	c.metrics.record(opStrength, time.Since(start))
	return results, nil
}

// scorePasswordLocally estimates strength from length and character
// class diversity. It is deliberately conservative; the collaborator's
// model sees breach corpora this heuristic cannot.
func scorePasswordLocally(password string) *StrengthResult {
	var hasLower, hasUpper, hasDigit, hasOther bool
	for _, r := range password {
		switch {
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsDigit(r):
			hasDigit = true
		default:
			hasOther = true
		}
	}

	pool := 0
	var feedback []string
	if hasLower {
		pool += 26
	}
	if hasUpper {
		pool += 26
	} else {
		feedback = append(feedback, "add uppercase letters")
	}
	if hasDigit {
		pool += 10
	} else {
		feedback = append(feedback, "add digits")
	}
	if hasOther {
		pool += 33
	} else {
		feedback = append(feedback, "add symbols")
	}
	if pool == 0 {
		pool = 1
	}

	length := len([]rune(password))
	entropy := float64(length) * math.Log2(float64(pool))
	if length < 8 {
		feedback = append(feedback, "use at least 8 characters")
	}

	var score int
	switch {
	case entropy < 28:
		score = 0
	case entropy < 36:
		score = 1
	case entropy < 60:
		score = 2
	case entropy < 128:
		score = 3
	default:
		score = 4
	}

	return &StrengthResult{
		Score:       score,
		EntropyBits: math.Round(entropy*10) / 10,
		Feedback:    feedback,
		ComputedOn:  ComputedOnClient,
	}
}
