package helper

import (
	"fmt"
	"regexp"
	"strings"
)

// ChatSuffix is the private-chat server attached to normalized recipients.
const ChatSuffix = "@s.whatsapp.net"

var (
	nonDigit     = regexp.MustCompile(`[^\d]`)
	nonDigitPlus = regexp.MustCompile(`[^\d+]`)
	// Candidate phone runs inside free-form display names: an optional +,
	// then digits possibly broken up by spaces, dashes or parentheses.
	phoneCandidate = regexp.MustCompile(`\+?\d[\d\s\-\(\)]{6,}\d`)
)

// NormalizeRecipient is the strict transform the bulk dispatcher uses:
// strip everything that is not a digit. It is deliberately narrower than
// FormatPhoneNumber: no leading +, no zero-trimming, no chat suffix.
func NormalizeRecipient(number string) (string, error) {
	digits := nonDigit.ReplaceAllString(number, "")
	if digits == "" {
		return "", fmt.Errorf("no digits in recipient %q", number)
	}
	return digits, nil
}

// FormatPhoneNumber is the general-purpose formatter: keeps a leading +,
// drops leading zeros, and appends the chat suffix at most once.
func FormatPhoneNumber(number string) string {
	formatted := nonDigitPlus.ReplaceAllString(number, "")

	for strings.HasPrefix(formatted, "0") {
		formatted = formatted[1:]
	}

	if !strings.HasPrefix(formatted, "+") {
		formatted = "+" + formatted
	}

	if !strings.HasSuffix(formatted, ChatSuffix) {
		formatted = formatted + ChatSuffix
	}

	return formatted
}

// maxPhoneDigits is the E.164 ceiling; anything longer is not one number.
const maxPhoneDigits = 15

// ExtractPhoneCandidates scans a contact display name for things that look
// like phone numbers. Best-effort only: names yield zero, one or several
// candidates and no result is validated against any numbering plan.
func ExtractPhoneCandidates(displayName string) []string {
	matches := phoneCandidate.FindAllString(displayName, -1)
	if len(matches) == 0 {
		return nil
	}

	var candidates []string
	seen := make(map[string]bool)
	for _, m := range matches {
		// Two numbers written side by side merge into one over-long run;
		// break those apart on whitespace and judge each piece on its own.
		parts := []string{m}
		if len(nonDigit.ReplaceAllString(m, "")) > maxPhoneDigits {
			parts = strings.Fields(m)
		}
		for _, part := range parts {
			digits := nonDigit.ReplaceAllString(part, "")
			// Anything shorter than 8 digits is a date or a house number.
			if len(digits) < 8 || len(digits) > maxPhoneDigits || seen[digits] {
				continue
			}
			seen[digits] = true
			candidates = append(candidates, digits)
		}
	}
	if len(candidates) == 0 {
		return nil
	}
	return candidates
}

// ExtractPhoneFromJID turns "59171234567:43@s.whatsapp.net" into
// "59171234567".
func ExtractPhoneFromJID(jid string) string {
	beforeAt := strings.SplitN(jid, "@", 2)[0]
	return strings.SplitN(beforeAt, ":", 2)[0]
}
