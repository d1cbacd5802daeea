package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"mclaunch/internal/rules"
)

func TestLoadMissingReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "launcher.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Downloads.Concurrency != 5 {
		t.Fatalf("concurrency = %d", cfg.Downloads.Concurrency)
	}
	if cfg.ArchRuleMode != string(rules.ArchCompareArch) {
		t.Fatalf("arch rule mode = %q", cfg.ArchRuleMode)
	}
	if cfg.Game.UUID != DefaultUUID {
		t.Fatalf("uuid = %q", cfg.Game.UUID)
	}
}

func TestLoadYAMLAppliesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "launcher.yaml")
	data := "platform: windows-x64\ngame:\n  username: Steve\n  jvm_args: [\"-Xmx2G\"]\n"
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Game.Username != "Steve" || len(cfg.Game.JVMArgs) != 1 {
		t.Fatalf("unexpected game config: %+v", cfg.Game)
	}
	if cfg.Game.LauncherName != "mclaunch" {
		t.Fatalf("launcher name default not applied: %q", cfg.Game.LauncherName)
	}
	ctx := cfg.PlatformContext()
	if ctx.OS != "windows" || ctx.ClasspathSeparator() != ";" {
		t.Fatalf("unexpected platform context: %+v", ctx)
	}
}

func TestLoadTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "launcher.toml")
	data := "arch_rule_mode = \"os\"\n[downloads]\nconcurrency = 8\n[game]\nusername = \"Alex\"\n"
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Downloads.Concurrency != 8 || cfg.Game.Username != "Alex" {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if cfg.Evaluator().ArchMode != rules.ArchCompareOS {
		t.Fatalf("arch mode = %q", cfg.Evaluator().ArchMode)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "launcher.yaml")
	data := "arch_rule_mode: sideways\ndownloads:\n  concurrency: 500\ngame:\n  uuid: not-a-uuid\n"
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := Load(path)
	var issues ValidationErrors
	if !errors.As(err, &issues) {
		t.Fatalf("expected ValidationErrors, got %v", err)
	}
	msg := issues.Error()
	for _, want := range []string{"arch_rule_mode", "downloads.concurrency", "game.uuid"} {
		if !strings.Contains(msg, want) {
			t.Errorf("expected %q in %q", want, msg)
		}
	}
}

func TestAuthUUIDCanonical(t *testing.T) {
	cfg := Default()
	cfg.Game.UUID = "F81D4FAE7DEC11D0A76500A0C91E6BF6"
	if got := cfg.Game.AuthUUID(); got != DefaultUUID {
		t.Fatalf("AuthUUID = %q", got)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "launcher.yaml")
	cfg := Default()
	cfg.Game.Username = "Notch"
	if err := cfg.Save(path); err != nil {
		t.Fatalf("save: %v", err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.Game.Username != "Notch" {
		t.Fatalf("username = %q", loaded.Game.Username)
	}
}
