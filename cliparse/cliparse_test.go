// cliparse/cliparse_test.go
package cliparse

import (
	"os"
	"testing"
)

func TestParseFlags_EnvVars(t *testing.T) {
	os.Setenv("NESTWATCH_SERVER", "https://pb.example.com")
	os.Setenv("NESTWATCH_HOME", "home1")
	os.Setenv("NESTWATCH_USER", "user1")
	os.Setenv("NESTWATCH_TOKEN", "tok")
	defer os.Clearenv()

	cfg, err := ParseFlags([]string{})
	if err != nil {
		t.Fatal(err)
	}

	if cfg.ServerURL != "https://pb.example.com" {
		t.Errorf("expected server from env, got %q", cfg.ServerURL)
	}
	if cfg.AuthToken != "tok" {
		t.Errorf("expected token from env, got %q", cfg.AuthToken)
	}
	if cfg.Command != "status" {
		t.Errorf("expected default command status, got %q", cfg.Command)
	}
}

func TestParseFlags_CLIOverridesEnv(t *testing.T) {
	os.Setenv("NESTWATCH_SERVER", "https://env.example.com")
	defer os.Clearenv()

	cfg, err := ParseFlags([]string{"-s", "https://cli.example.com", "-H", "h1", "-u", "u1"})
	if err != nil {
		t.Fatal(err)
	}

	// CLI should override env
	if cfg.ServerURL != "https://cli.example.com" {
		t.Errorf("CLI should override env: got %q", cfg.ServerURL)
	}
}

func TestParseFlags_MissingServer(t *testing.T) {
	os.Clearenv()

	_, err := ParseFlags([]string{"-H", "h1", "-u", "u1"})
	if err == nil {
		t.Fatal("expected error for missing server URL")
	}
}

func TestParseFlags_CommandAndArgs(t *testing.T) {
	os.Clearenv()

	cfg, err := ParseFlags([]string{"-s", "https://pb", "-H", "h1", "-u", "u1", "play", "m1=Alien", "m2=Heat"})
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Command != "play" {
		t.Errorf("expected command play, got %q", cfg.Command)
	}
	if len(cfg.Args) != 2 || cfg.Args[0] != "m1=Alien" {
		t.Errorf("unexpected args: %v", cfg.Args)
	}
}

func TestParseFlags_Defaults(t *testing.T) {
	os.Clearenv()

	cfg, err := ParseFlags([]string{"-s", "https://pb", "-H", "h1", "-u", "u1"})
	if err != nil {
		t.Fatal(err)
	}

	if cfg.CatalogURL != DefaultCatalogURL {
		t.Errorf("expected default catalog URL, got %q", cfg.CatalogURL)
	}
	if cfg.DatabaseType != "sqlite" {
		t.Errorf("expected sqlite default, got %q", cfg.DatabaseType)
	}
}
