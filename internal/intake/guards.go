package intake

import (
	"errors"
	"fmt"
	"math"
	"net/mail"
	"strings"
	"unicode"
)

var ErrValidation = errors.New("step validation failed")

// ValidationError keeps the session on Step; it is never a system failure.
type ValidationError struct {
	Step   Step
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s: %s", e.Step, e.Reason)
	}
	return fmt.Sprintf("%s.%s: %s", e.Step, e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

func invalid(step Step, field, reason string) error {
	return &ValidationError{Step: step, Field: field, Reason: reason}
}

const minPhoneDigits = 7

func guardPreferences(s *Session, _ Options) error {
	if len(cleanZones(s.Preferences.Zones)) == 0 {
		return invalid(StepPreferences, "zones", "at least one zone is required")
	}
	if b := s.Preferences.Bedrooms; b != nil && *b < 0 {
		return invalid(StepPreferences, "bedrooms", "must not be negative")
	}
	if b := s.Preferences.Bathrooms; b != nil && *b < 0 {
		return invalid(StepPreferences, "bathrooms", "must not be negative")
	}
	return nil
}

func guardIncome(s *Session, opts Options) error {
	income := s.MonthlyIncome
	if math.IsNaN(income) || math.IsInf(income, 0) || income < opts.IncomeFloor {
		return invalid(StepIncome, "monthlyIncome", fmt.Sprintf("must be at least %g", opts.IncomeFloor))
	}
	return nil
}

func guardContact(s *Session, _ Options) error {
	c := s.Contact
	if strings.TrimSpace(c.Name) == "" {
		return invalid(StepContact, "name", "is required")
	}
	if _, err := mail.ParseAddress(strings.TrimSpace(c.Email)); err != nil || !strings.Contains(c.Email, "@") {
		return invalid(StepContact, "email", "is not a valid address")
	}
	if countDigits(c.Phone) < minPhoneDigits {
		return invalid(StepContact, "phone", fmt.Sprintf("needs at least %d digits", minPhoneDigits))
	}
	return nil
}

func guardDecision(s *Session, _ Options) error {
	if s.WantsValidation == nil {
		return invalid(StepValidationDecision, "wantsValidation", "a decision is required")
	}
	return nil
}

func guardDocuments(s *Session, _ Options) error {
	if s.Requirements == nil {
		return invalid(StepDocuments, "", "document requirements not resolved")
	}
	missing := s.Requirements.Missing(s.Documents)
	if len(missing) == 0 {
		return nil
	}
	names := make([]string, len(missing))
	for i, slot := range missing {
		names[i] = string(slot)
	}
	return invalid(StepDocuments, "documents", "missing "+strings.Join(names, ", "))
}

func cleanZones(zones []string) []string {
	out := make([]string, 0, len(zones))
	for _, z := range zones {
		if z = strings.TrimSpace(z); z != "" {
			out = append(out, z)
		}
	}
	return out
}

func countDigits(s string) int {
	n := 0
	for _, r := range s {
		if unicode.IsDigit(r) {
			n++
		}
	}
	return n
}
