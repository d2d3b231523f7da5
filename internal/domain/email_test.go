package domain

import "testing"

func TestValidEmail(t *testing.T) {
	tests := []struct {
		email string
		want  bool
	}{
		{"jane@example.com", true},
		{"a.b+tag@mail.co.uk", true},
		{"jane@example", false},
		{"jane example@mail.com", false},
		{"@example.com", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.email, func(t *testing.T) {
			if got := ValidEmail(tt.email); got != tt.want {
				t.Fatalf("ValidEmail(%q) = %v, want %v", tt.email, got, tt.want)
			}
		})
	}
}
