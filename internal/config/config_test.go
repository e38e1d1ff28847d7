package config

import "testing"

func TestLoad(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret-at-least-16-chars!!")
	t.Setenv("PORT", "4040")
	t.Setenv("SEED_TEST_USERS", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Port != 4040 {
		t.Errorf("Port = %d, want 4040", cfg.Port)
	}
	if !cfg.SeedTestUsers {
		t.Error("SeedTestUsers = false, want true")
	}
	if cfg.EmailProvider != "console" {
		t.Errorf("EmailProvider = %q, want default console", cfg.EmailProvider)
	}
	// Callback URLs default onto the configured port.
	want := "http://localhost:4040/api/auth/google/callback"
	if cfg.GoogleCallbackURL != want {
		t.Errorf("GoogleCallbackURL = %q, want %q", cfg.GoogleCallbackURL, want)
	}
}

func TestLoad_RequiresJWTSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")

	if _, err := Load(); err == nil {
		t.Error("Load() succeeded without JWT_SECRET")
	}
}
