package integration

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/AndreyAkinshin/nightowl/internal/config"
)

func TestLoadNightlyFixture(t *testing.T) {
	t.Parallel()
	dir := filepath.Join(fixturesDir(), "nightly")

	cfg, err := config.Load(filepath.Join(dir, "owl.cfg"))
	if err != nil {
		t.Fatalf("failed to load fixture config: %v", err)
	}

	if len(cfg.Buildouts) != 3 {
		t.Fatalf("expected 3 buildouts, got %d", len(cfg.Buildouts))
	}
	names := []string{cfg.Buildouts[0].Name, cfg.Buildouts[1].Name, cfg.Buildouts[2].Name}
	if strings.Join(names, ",") != "portal,survey,intranet" {
		t.Errorf("buildout order = %v", names)
	}

	intranet, ok := cfg.Buildout("intranet")
	if !ok {
		t.Fatal("expected intranet buildout")
	}
	if !intranet.HasPreTest() {
		t.Error("intranet should have a pre_test command")
	}
	if intranet.TestCommand != "cat test-output.txt" {
		t.Errorf("testcmd = %q, want interpolated DEFAULT value", intranet.TestCommand)
	}
	if intranet.Path != filepath.Join(dir, "intranet") {
		t.Errorf("path = %q, want it resolved against the config dir", intranet.Path)
	}

	if cfg.OutputRoot != filepath.Join(dir, "reports") {
		t.Errorf("output_root = %q", cfg.OutputRoot)
	}
	if !cfg.MailEnabled() {
		t.Error("mail should be enabled with error_emails set")
	}
	if cfg.Mail.Addr() != "localhost:25" {
		t.Errorf("mail addr = %q, want default", cfg.Mail.Addr())
	}
}

func TestLoadBrokenFixture(t *testing.T) {
	t.Parallel()

	_, err := config.Load(filepath.Join(fixturesDir(), "broken", "owl.cfg"))
	if err == nil {
		t.Fatal("expected error for broken fixture")
	}
	for _, want := range []string{"portal.testcmd", "missing"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q should mention %q", err.Error(), want)
		}
	}
}
