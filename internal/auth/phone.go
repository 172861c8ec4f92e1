package auth

import (
	"regexp"
	"strings"

	"github.com/innovative-enterprises/whatsapp-agent/internal/models"
)

var (
	phoneFormatting = strings.NewReplacer(" ", "", "-", "", "(", "", ")", "", ".", "")
	phonePattern    = regexp.MustCompile(`^\+?[0-9]{7,15}$`)
)

// NormalizePhone strips formatting and returns the number as digits only,
// the form WhatsApp uses for wa_id.
func NormalizePhone(raw string) (string, error) {
	s := phoneFormatting.Replace(strings.TrimSpace(raw))
	if !phonePattern.MatchString(s) {
		return "", models.ErrInvalidPhone
	}
	return strings.TrimPrefix(s, "+"), nil
}

// MaskPhone hides all but the last four digits for logging.
func MaskPhone(phone string) string {
	if len(phone) <= 4 {
		return "****"
	}
	return strings.Repeat("*", len(phone)-4) + phone[len(phone)-4:]
}
