package auth

import "testing"

func TestValidateUsername(t *testing.T) {
	cases := []struct {
		name    string
		wantErr bool
	}{
		{"", true},
		{"alice", false},
		{"alice/bob", true},
		{"alice<bob>", true},
		{"alice(bob)", true},
	}
	for _, c := range cases {
		err := ValidateUsername(c.name)
		if c.wantErr && err == nil {
			t.Errorf("ValidateUsername(%q): expected error, got nil", c.name)
		}
		if !c.wantErr && err != nil {
			t.Errorf("ValidateUsername(%q): expected no error, got %v", c.name, err)
		}
	}
}

func TestValidateUsername_TooLong(t *testing.T) {
	long := make([]rune, 257)
	for i := range long {
		long[i] = 'a'
	}
	if err := ValidateUsername(string(long)); err == nil {
		t.Fatal("expected a 257-rune username to be rejected")
	}
}

func TestValidateEmail(t *testing.T) {
	cases := []struct {
		email   string
		wantErr bool
	}{
		{"alice@example.com", false},
		{"not-an-email", true},
		{"", true},
	}
	for _, c := range cases {
		err := ValidateEmail(c.email)
		if c.wantErr && err == nil {
			t.Errorf("ValidateEmail(%q): expected error, got nil", c.email)
		}
		if !c.wantErr && err != nil {
			t.Errorf("ValidateEmail(%q): expected no error, got %v", c.email, err)
		}
	}
}
