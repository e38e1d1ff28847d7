package model

import "testing"

func TestAvatarTag(t *testing.T) {
	tests := []struct {
		username string
		want     string
	}{
		{"NovaStar", "NO"},
		{"alice", "AL"},
		{"ab", "AB"},
		{"x", "X"},
		{"", ""},
		// First two characters, not first two bytes.
		{"日本語プレイヤー", "日本"},
		{"ñandú", "ÑA"},
	}

	for _, tt := range tests {
		if got := AvatarTag(tt.username); got != tt.want {
			t.Errorf("AvatarTag(%q) = %q, want %q", tt.username, got, tt.want)
		}
	}
}

func TestProfile(t *testing.T) {
	u := &User{
		ID:           "internal-id",
		PublicID:     "22334",
		Username:     "NovaStar",
		Avatar:       "NO",
		PasswordHash: "$2a$12$secret",
		Email:        "nova@example.com",
	}

	p := u.Profile()
	if p.Username != "NovaStar" || p.PublicID != "22334" || p.Avatar != "NO" {
		t.Errorf("Profile() = %+v", p)
	}
}

func TestHasPassword(t *testing.T) {
	if (&User{PasswordHash: "$2a$12$x"}).HasPassword() != true {
		t.Error("HasPassword() = false for a local account")
	}
	if (&User{}).HasPassword() != false {
		t.Error("HasPassword() = true for a federated account")
	}
}
