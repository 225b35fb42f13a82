package lpa

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidActivationCode is returned when a string is not a GSMA
// activation code.
var ErrInvalidActivationCode = errors.New("invalid activation code")

// ActivationCode is a parsed "LPA:1$<smdp>$<matchingId>[$<oid>[$<ccFlag>]]"
// string, as encoded in the QR codes operators hand out.
type ActivationCode struct {
	SMDP                 string
	MatchingID           string
	OID                  string
	ConfirmationRequired bool
}

// ParseActivationCode parses an activation code. The "LPA:" prefix is
// optional and case-insensitive.
func ParseActivationCode(s string) (ActivationCode, error) {
	s = strings.TrimSpace(s)
	if len(s) >= 4 && strings.EqualFold(s[:4], "LPA:") {
		s = s[4:]
	}

	parts := strings.Split(s, "$")
	if len(parts) < 3 || len(parts) > 5 {
		return ActivationCode{}, fmt.Errorf("%w: expected 3 to 5 fields, got %d", ErrInvalidActivationCode, len(parts))
	}
	if parts[0] != "1" {
		return ActivationCode{}, fmt.Errorf("%w: unsupported format %q", ErrInvalidActivationCode, parts[0])
	}

	ac := ActivationCode{
		SMDP:       parts[1],
		MatchingID: parts[2],
	}
	if err := ValidateAddress(ac.SMDP); err != nil {
		return ActivationCode{}, fmt.Errorf("%w: %v", ErrInvalidActivationCode, err)
	}
	if len(parts) > 3 {
		ac.OID = parts[3]
	}
	if len(parts) > 4 {
		switch parts[4] {
		case "1":
			ac.ConfirmationRequired = true
		case "", "0":
		default:
			return ActivationCode{}, fmt.Errorf("%w: confirmation flag must be 0 or 1", ErrInvalidActivationCode)
		}
	}
	return ac, nil
}

// String formats the code back into its canonical form.
func (ac ActivationCode) String() string {
	parts := []string{"LPA:1", ac.SMDP, ac.MatchingID}
	if ac.OID != "" || ac.ConfirmationRequired {
		parts = append(parts, ac.OID)
	}
	if ac.ConfirmationRequired {
		parts = append(parts, "1")
	}
	return strings.Join(parts, "$")
}
