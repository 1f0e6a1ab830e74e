package generation

import "testing"

func TestNonRetryable(t *testing.T) {
	tests := []struct {
		reason string
		want   bool
	}{
		{"Insufficient funds for generation", true},
		{"insufficient credits", true},
		{"Debit All balance failed", true},
		{"Payment Required", true},
		{"unauthorized", true},
		{"user is not authorized", true},
		{"worker crashed during render", false},
		{"connection reset by peer", false},
		{"timeout waiting for worker", false},
		{"", false},
	}

	for _, tt := range tests {
		if got := NonRetryable(tt.reason); got != tt.want {
			t.Errorf("NonRetryable(%q) = %v, want %v", tt.reason, got, tt.want)
		}
	}
}
