// NovaTune - Self-Hosted Audio Streaming Platform
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/novatune/backend

package config

import (
	"strings"
	"testing"
)

func TestPasswordPolicy_Validate_Length(t *testing.T) {
	t.Parallel()

	policy := DefaultPasswordPolicy()

	tests := []struct {
		name     string
		password string
		wantErr  bool
	}{
		{"too short", "Ab1!", true}, // will fail length check
		{"11 chars, under minimum 12", "Abcdefgh12!", true},
		{"long password", "Abcdefghijklmnop123!@#", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := policy.Validate(tt.password, "")
			if tt.wantErr && result.Valid {
				// This test expects an error, so Valid should be false
				t.Errorf("expected %q to fail validation", tt.password)
			}
		})
	}

	// Test minimum length requirement
	shortPassword := "Ab1!"
	result := policy.Validate(shortPassword, "")
	if result.Valid {
		t.Error("Expected short password to fail validation")
	}

	foundLengthError := false
	for _, err := range result.Errors {
		if strings.Contains(err, "at least 12 characters") {
			foundLengthError = true
			break
		}
	}
	if !foundLengthError {
		t.Error("Expected length error message")
	}
}

func TestPasswordPolicy_Validate_Uppercase(t *testing.T) {
	t.Parallel()

	policy := PasswordPolicy{
		MinLength:        8,
		RequireUppercase: true,
		RequireLowercase: false,
		RequireDigit:     false,
		RequireSpecial:   false,
	}

	// Password without uppercase
	result := policy.Validate("abcdefgh123!", "")
	if result.Valid {
		t.Error("Expected password without uppercase to fail")
	}
	if !containsError(result.Errors, "uppercase") {
		t.Error("Expected uppercase error message")
	}

	// Password with uppercase
	result = policy.Validate("Abcdefgh123!", "")
	if !result.Valid {
		t.Errorf("Expected password with uppercase to pass: %v", result.Errors)
	}
}

func TestPasswordPolicy_Validate_Lowercase(t *testing.T) {
	t.Parallel()

	policy := PasswordPolicy{
		MinLength:        8,
		RequireUppercase: false,
		RequireLowercase: true,
		RequireDigit:     false,
		RequireSpecial:   false,
	}

	// Password without lowercase
	result := policy.Validate("ABCDEFGH123!", "")
	if result.Valid {
		t.Error("Expected password without lowercase to fail")
	}
	if !containsError(result.Errors, "lowercase") {
		t.Error("Expected lowercase error message")
	}

	// Password with lowercase
	result = policy.Validate("ABCDEFGHa123!", "")
	if !result.Valid {
		t.Errorf("Expected password with lowercase to pass: %v", result.Errors)
	}
}

func TestPasswordPolicy_Validate_Digit(t *testing.T) {
	t.Parallel()

	policy := PasswordPolicy{
		MinLength:        8,
		RequireUppercase: false,
		RequireLowercase: false,
		RequireDigit:     true,
		RequireSpecial:   false,
	}

	// Password without digit
	result := policy.Validate("Abcdefgh!", "")
	if result.Valid {
		t.Error("Expected password without digit to fail")
	}
	if !containsError(result.Errors, "digit") {
		t.Error("Expected digit error message")
	}

	// Password with digit
	result = policy.Validate("Abcdefgh1!", "")
	if !result.Valid {
		t.Errorf("Expected password with digit to pass: %v", result.Errors)
	}
}

func TestPasswordPolicy_Validate_Special(t *testing.T) {
	t.Parallel()

	policy := PasswordPolicy{
		MinLength:        8,
		RequireUppercase: false,
		RequireLowercase: false,
		RequireDigit:     false,
		RequireSpecial:   true,
	}

	// Password without special
	result := policy.Validate("Abcdefgh123", "")
	if result.Valid {
		t.Error("Expected password without special character to fail")
	}
	if !containsError(result.Errors, "special") {
		t.Error("Expected special character error message")
	}

	// Password with special
	result = policy.Validate("Abcdefgh123!", "")
	if !result.Valid {
		t.Errorf("Expected password with special character to pass: %v", result.Errors)
	}
}

func TestPasswordPolicy_Validate_ConsecutiveRepeats(t *testing.T) {
	t.Parallel()

	policy := PasswordPolicy{
		MinLength:             8,
		MaxConsecutiveRepeats: 3,
	}

	// Password with too many consecutive repeats
	result := policy.Validate("aaaa1234", "")
	if result.Valid {
		t.Error("Expected password with 4+ consecutive repeats to fail")
	}
	if !containsError(result.Errors, "consecutive repeated") {
		t.Error("Expected consecutive repeats error message")
	}

	// Password with acceptable repeats
	result = policy.Validate("aaa12345", "")
	if !result.Valid {
		t.Errorf("Expected password with 3 consecutive repeats to pass: %v", result.Errors)
	}
}

func TestPasswordPolicy_Validate_CommonPasswords(t *testing.T) {
	t.Parallel()

	policy := PasswordPolicy{
		MinLength:             1, // Disable length check for this test
		ForbidCommonPasswords: true,
	}

	commonPasswords := []string{
		"password",
		"123456",
		"qwerty",
		"admin",
		"admin123",
		"letmein",
		"password123",
	}

	for _, pass := range commonPasswords {
		t.Run(pass, func(t *testing.T) {
			result := policy.Validate(pass, "")
			if result.Valid {
				t.Errorf("Expected common password '%s' to fail", pass)
			}
			if !containsError(result.Errors, "too common") {
				t.Errorf("Expected common password error for '%s'", pass)
			}
		})
	}
}

func TestPasswordPolicy_Validate_UsernameSimilarity(t *testing.T) {
	t.Parallel()

	policy := PasswordPolicy{
		MinLength:                1,
		ForbidUsernameSimilarity: true,
	}

	tests := []struct {
		name     string
		password string
		username string
		wantFail bool
	}{
		{"contains username", "myadmin123", "admin", true},
		{"username reversed", "nimda123", "admin", true},
		// Note: admin@123 contains "admin" verbatim, so the direct substring
		// check rejects it (the substituted form of "admin" is "@dm1n")
		{"username followed by @123", "admin@123", "admin", true},
		{"different enough", "XyZ789!@#$", "admin", false},
		{"empty username", "password123", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := policy.Validate(tt.password, tt.username)
			if tt.wantFail && result.Valid {
				t.Errorf("Expected password '%s' with username '%s' to fail", tt.password, tt.username)
			}
			if !tt.wantFail && !result.Valid {
				t.Errorf("Expected password '%s' with username '%s' to pass: %v", tt.password, tt.username, result.Errors)
			}
		})
	}
}

func TestPasswordPolicy_Strength(t *testing.T) {
	t.Parallel()

	policy := PasswordPolicy{
		MinLength: 1, // Disable length check
	}

	// Password strength calculation:
	// - Length: 20+ = 4pts, 16+ = 3pts, 12+ = 2pts, 8+ = 1pt
	// - Char types: +1 per type (upper, lower, digit, special)
	// - Patterns: -1 for sequential, -1 for keyboard pattern
	// Score thresholds: 8+ = excellent, 6+ = strong, 4+ = good, 2+ = fair

	tests := []struct {
		name        string
		password    string
		minStrength PasswordStrength
	}{
		// "abcdefgh" (8 chars): length=1, lower=1, sequential=-1 = 1 -> weak
		{"weak - only lowercase with seq", "abcdefgh", PasswordStrengthWeak},
		// "Abcdefgh" (8 chars): length=1, upper=1, lower=1, sequential=-1 = 2 -> fair
		{"fair - mixed case", "Abcdefgh", PasswordStrengthFair},
		// "Abcdefgh1" (9 chars): length=1, upper=1, lower=1, digit=1, sequential=-1 = 3 -> fair (just under good)
		{"fair - mixed + digit with seq", "Abcdefgh1", PasswordStrengthFair},
		// "XyZ789!@#" (9 chars): length=1, upper=1, lower=1, digit=1, special=1, sequential (xyz, 789)=-1 = 4 -> good
		{"good - all types with seq", "XyZ789!@#", PasswordStrengthGood},
		// Long password with all types; "123" and "XYZ" are sequential
		// "SecurePass123!@#XYZ" (19 chars): length=3, all 4 types=4, sequential=-1 = 6 -> strong
		{"strong - long with all types", "SecurePass123!@#XYZ", PasswordStrengthStrong},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := policy.Validate(tt.password, "")
			if result.Strength < tt.minStrength {
				t.Errorf("Expected strength >= %v, got %v for password '%s'",
					tt.minStrength, result.Strength, tt.password)
			}
		})
	}
}

func TestPasswordPolicy_ValidateWithError(t *testing.T) {
	t.Parallel()

	policy := DefaultPasswordPolicy()

	// Invalid password
	err := policy.ValidateWithError("weak", "admin")
	if err == nil {
		t.Error("Expected error for weak password")
	}

	// Valid password
	err = policy.ValidateWithError("SuperStr0ng!Pass#2024", "admin")
	if err != nil {
		t.Errorf("Expected no error for strong password: %v", err)
	}
}

func TestDefaultPasswordPolicy(t *testing.T) {
	t.Parallel()

	policy := DefaultPasswordPolicy()

	if policy.MinLength != 12 {
		t.Errorf("Expected MinLength 12, got %d", policy.MinLength)
	}
	if !policy.RequireUppercase {
		t.Error("Expected RequireUppercase to be true")
	}
	if !policy.RequireLowercase {
		t.Error("Expected RequireLowercase to be true")
	}
	if !policy.RequireDigit {
		t.Error("Expected RequireDigit to be true")
	}
	if !policy.RequireSpecial {
		t.Error("Expected RequireSpecial to be true")
	}
	if !policy.ForbidCommonPasswords {
		t.Error("Expected ForbidCommonPasswords to be true")
	}
	if !policy.ForbidUsernameSimilarity {
		t.Error("Expected ForbidUsernameSimilarity to be true")
	}
}

func TestRelaxedPasswordPolicy(t *testing.T) {
	t.Parallel()

	policy := RelaxedPasswordPolicy()

	if policy.MinLength != 8 {
		t.Errorf("Expected MinLength 8, got %d", policy.MinLength)
	}
	if policy.RequireUppercase {
		t.Error("Expected RequireUppercase to be false for relaxed policy")
	}
	if policy.RequireSpecial {
		t.Error("Expected RequireSpecial to be false for relaxed policy")
	}
}

func TestPasswordStrength_String(t *testing.T) {
	t.Parallel()

	tests := []struct {
		strength PasswordStrength
		want     string
	}{
		{PasswordStrengthWeak, "weak"},
		{PasswordStrengthFair, "fair"},
		{PasswordStrengthGood, "good"},
		{PasswordStrengthStrong, "strong"},
		{PasswordStrengthExcellent, "excellent"},
		{PasswordStrength(99), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.strength.String(); got != tt.want {
				t.Errorf("String() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestHasSequentialChars(t *testing.T) {
	t.Parallel()

	tests := []struct {
		password string
		want     bool
	}{
		{"abcd1234", true},    // has abc, 123
		{"xyz789", true},      // has xyz
		{"321password", true}, // has 321
		{"cbafedg", true},     // has cba, fed
		{"aXbYcZ12", false},   // no sequential
		{"ab", false},         // too short
		{"azbycx", false},     // not sequential
		{"AaBbCc123", true},   // has 123
		{"random!@#$%", true}, // has #$% (ASCII 35, 36, 37 are sequential)
		{"Rand0m!Pwd", false}, // no sequential patterns
	}

	for _, tt := range tests {
		t.Run(tt.password, func(t *testing.T) {
			if got := hasSequentialChars(tt.password); got != tt.want {
				t.Errorf("hasSequentialChars(%q) = %v, want %v", tt.password, got, tt.want)
			}
		})
	}
}

func TestHasKeyboardPattern(t *testing.T) {
	t.Parallel()

	tests := []struct {
		password string
		want     bool
	}{
		{"qwerty123", true},
		{"password1qaz", true},
		{"asdfghjkl", true},
		{"zxcvbnm123", true},
		{"randompass", false},
		{"SecureP@ss", false},
	}

	for _, tt := range tests {
		t.Run(tt.password, func(t *testing.T) {
			if got := hasKeyboardPattern(tt.password); got != tt.want {
				t.Errorf("hasKeyboardPattern(%q) = %v, want %v", tt.password, got, tt.want)
			}
		})
	}
}

// containsError checks if any error message contains the given substring.
func containsError(errors []string, substr string) bool {
	for _, err := range errors {
		if strings.Contains(strings.ToLower(err), strings.ToLower(substr)) {
			return true
		}
	}
	return false
}
