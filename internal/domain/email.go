package domain

import "regexp"

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// ValidEmail проверяет адрес по шаблону local@domain.tld.
func ValidEmail(email string) bool {
	return emailPattern.MatchString(email)
}
