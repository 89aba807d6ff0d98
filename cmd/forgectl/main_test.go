package main

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ashureev/prompt-forge/internal/domain"
	"github.com/ashureev/prompt-forge/internal/persistence"
	"github.com/ashureev/prompt-forge/internal/store"
)

const testDevice = "dev_0123456789abcdef0123456789abcdef"

func resetFlags() {
	flagDBPath = ""
}

// newTestApp returns an App over a fresh database and the database path.
func newTestApp(t *testing.T, out *bytes.Buffer) (*App, string) {
	t.Helper()
	resetFlags()
	path := filepath.Join(t.TempDir(), "forge.db")
	return &App{
		Out: out,
		Err: out,
		GetEnv: func(key string) string {
			if key == "DB_PATH" {
				return path
			}
			return ""
		},
		OpenRepo: store.NewSQLite,
	}, path
}

func seed(t *testing.T, path string, s domain.AppState) {
	t.Helper()
	repo, err := store.NewSQLite(path)
	if err != nil {
		t.Fatalf("NewSQLite failed: %v", err)
	}
	defer repo.Close()
	if err := persistence.NewAdapter(repo).Save(context.Background(), testDevice, s); err != nil {
		t.Fatalf("seed failed: %v", err)
	}
}

func loggedIn(credits int) domain.AppState {
	s := domain.DefaultAppState()
	s.CurrentUser = &domain.User{Name: "Ada", Email: "ada@example.com"}
	s.Credits = credits
	return s
}

func execute(app *App, args ...string) error {
	cmd := newRootCmd(app)
	cmd.SetArgs(args)
	cmd.SetOut(app.Out)
	cmd.SetErr(app.Err)
	return cmd.Execute()
}

func TestDevicesLists(t *testing.T) {
	var out bytes.Buffer
	app, path := newTestApp(t, &out)
	seed(t, path, loggedIn(1200))

	if err := execute(app, "devices"); err != nil {
		t.Fatalf("devices failed: %v", err)
	}
	got := out.String()
	if !strings.Contains(got, testDevice) || !strings.Contains(got, "1,200 credits") {
		t.Fatalf("unexpected output: %q", got)
	}
}

func TestStateShowAndReset(t *testing.T) {
	var out bytes.Buffer
	app, path := newTestApp(t, &out)
	seed(t, path, loggedIn(7))

	if err := execute(app, "state", "show", testDevice); err != nil {
		t.Fatalf("show failed: %v", err)
	}
	if !strings.Contains(out.String(), `"userCredits": 7`) {
		t.Fatalf("unexpected output: %q", out.String())
	}

	out.Reset()
	if err := execute(app, "state", "reset", testDevice); err != nil {
		t.Fatalf("reset failed: %v", err)
	}

	out.Reset()
	if err := execute(app, "state", "show", testDevice); err != nil {
		t.Fatalf("show failed: %v", err)
	}
	if !strings.Contains(out.String(), `"currentUser": null`) {
		t.Fatalf("expected default state after reset, got %q", out.String())
	}
}

func TestCreditsGrant(t *testing.T) {
	var out bytes.Buffer
	app, path := newTestApp(t, &out)
	seed(t, path, loggedIn(3))

	if err := execute(app, "credits", "grant", testDevice, "50"); err != nil {
		t.Fatalf("grant failed: %v", err)
	}
	if !strings.Contains(out.String(), "balance 53") {
		t.Fatalf("unexpected output: %q", out.String())
	}

	repo, err := store.NewSQLite(path)
	if err != nil {
		t.Fatalf("NewSQLite failed: %v", err)
	}
	defer repo.Close()
	if got := persistence.NewAdapter(repo).Load(context.Background(), testDevice).Credits; got != 53 {
		t.Fatalf("expected 53 persisted credits, got %d", got)
	}
}

func TestCreditsGrantRejects(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"bad device", []string{"credits", "grant", "nope", "5"}, "invalid device id"},
		{"bad amount", []string{"credits", "grant", testDevice, "-5"}, "invalid amount"},
		{"no session", []string{"credits", "grant", testDevice, "5"}, "no session"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			app, _ := newTestApp(t, &out)
			err := execute(app, tt.args...)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestDBFlagOverridesEnv(t *testing.T) {
	var out bytes.Buffer
	app, _ := newTestApp(t, &out)
	flagDBPath = "/tmp/explicit.db"
	defer resetFlags()

	if got := dbPath(app); got != "/tmp/explicit.db" {
		t.Fatalf("expected flag path, got %s", got)
	}
}
