package profile

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	"mihomoctl/internal/env"
	"mihomoctl/internal/errs"
)

func newTestManager(t *testing.T) (*Manager, env.Home) {
	t.Helper()
	home := env.New(t.TempDir())
	if err := home.EnsureLayout(); err != nil {
		t.Fatal(err)
	}
	return NewManager(home), home
}

func TestEnsureDefaultConfig(t *testing.T) {
	m, home := newTestManager(t)

	p, err := m.EnsureDefaultConfig()
	if err != nil {
		t.Fatal(err)
	}
	if p.Name != DefaultProfileName {
		t.Errorf("got profile %s, want %s", p.Name, DefaultProfileName)
	}
	if _, err := os.Stat(home.ProfilePath(DefaultProfileName)); err != nil {
		t.Fatal("default profile file should exist")
	}
	current, err := m.Store().Current()
	if err != nil {
		t.Fatal(err)
	}
	if current != DefaultProfileName {
		t.Errorf("current pointer should reference the generated profile, got %q", current)
	}

	// 生成的配置要能通过自己的校验
	if err := m.Validate(home.ProfilePath(DefaultProfileName)); err != nil {
		t.Errorf("generated default profile failed validation: %v", err)
	}
}

func TestEnsureDefaultConfigIdempotent(t *testing.T) {
	m, _ := newTestManager(t)

	if err := m.Store().Save("custom", []byte("port: 7890\nmode: rule\nlog-level: info\n")); err != nil {
		t.Fatal(err)
	}
	if err := m.Store().SetCurrent("custom"); err != nil {
		t.Fatal(err)
	}

	p, err := m.EnsureDefaultConfig()
	if err != nil {
		t.Fatal(err)
	}
	if p.Name != "custom" {
		t.Errorf("existing profile should win, got %s", p.Name)
	}
	if m.Store().Exists(DefaultProfileName) {
		t.Error("default profile should not be generated when profiles exist")
	}
}

func TestEnsureExternalController(t *testing.T) {
	m, home := newTestManager(t)

	controller, secret, err := m.EnsureExternalController()
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(controller, "http://127.0.0.1:") {
		t.Errorf("unexpected controller %q", controller)
	}
	if secret == "" {
		t.Error("secret should be generated")
	}

	// 第二次调用返回相同值，不再改写文件
	info1, _ := os.Stat(home.ProfilePath(DefaultProfileName))
	controller2, secret2, err := m.EnsureExternalController()
	if err != nil {
		t.Fatal(err)
	}
	if controller2 != controller || secret2 != secret {
		t.Error("repeated call should return the same endpoint and secret")
	}
	info2, _ := os.Stat(home.ProfilePath(DefaultProfileName))
	if !info1.ModTime().Equal(info2.ModTime()) {
		t.Error("repeated call should not rewrite the profile")
	}
}

func TestEnsureExternalControllerKeepsExisting(t *testing.T) {
	m, _ := newTestManager(t)

	content := "port: 7890\nmode: rule\nlog-level: info\nexternal-controller: 127.0.0.1:9090\nsecret: fixed\n"
	if err := m.Store().Save("manual", []byte(content)); err != nil {
		t.Fatal(err)
	}
	if err := m.Store().SetCurrent("manual"); err != nil {
		t.Fatal(err)
	}

	controller, secret, err := m.EnsureExternalController()
	if err != nil {
		t.Fatal(err)
	}
	if controller != "http://127.0.0.1:9090" {
		t.Errorf("declared controller should be kept, got %q", controller)
	}
	if secret != "fixed" {
		t.Errorf("declared secret should be kept, got %q", secret)
	}
}

func TestEnsureExternalControllerPreservesKeys(t *testing.T) {
	m, home := newTestManager(t)

	content := "port: 7890\nsocks-port: 7891\nmode: rule\nlog-level: warning\n"
	if err := m.Store().Save("keep", []byte(content)); err != nil {
		t.Fatal(err)
	}
	if err := m.Store().SetCurrent("keep"); err != nil {
		t.Fatal(err)
	}
	if _, _, err := m.EnsureExternalController(); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(home.ProfilePath("keep"))
	if err != nil {
		t.Fatal(err)
	}
	var doc map[string]interface{}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		t.Fatal(err)
	}
	if doc["log-level"] != "warning" {
		t.Errorf("existing keys must survive the rewrite, log-level = %v", doc["log-level"])
	}
	if doc["external-controller"] == nil || doc["secret"] == nil {
		t.Error("controller and secret should be filled in")
	}
}

func TestValidate(t *testing.T) {
	m, _ := newTestManager(t)
	dir := t.TempDir()
	write := func(name, content string) string {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
		return path
	}

	cases := []struct {
		name    string
		content string
		kind    errs.Kind
		wantKey string
	}{
		{"bad.yaml", "port: [unclosed", errs.KindValidation, ""},
		{"empty.yaml", "", errs.KindValidation, ""},
		{"noport.yaml", "mode: rule\nlog-level: info\n", errs.KindValidation, "port"},
		{"nomode.yaml", "port: 7890\nlog-level: info\n", errs.KindValidation, "mode"},
		{"badport.yaml", "port: not-a-number\nmode: rule\nlog-level: info\n", errs.KindValidation, "port"},
	}
	for _, c := range cases {
		err := m.Validate(write(c.name, c.content))
		if !errs.IsKind(err, c.kind) {
			t.Errorf("%s: got %v, want kind %s", c.name, err, c.kind)
			continue
		}
		if c.wantKey != "" && !strings.Contains(err.Error(), c.wantKey) {
			t.Errorf("%s: error %q should name key %q", c.name, err, c.wantKey)
		}
	}

	good := write("good.yaml", "port: 7890\nmode: rule\nlog-level: info\n")
	if err := m.Validate(good); err != nil {
		t.Errorf("valid config rejected: %v", err)
	}

	if err := m.Validate(filepath.Join(dir, "missing.yaml")); !errs.IsKind(err, errs.KindNotFound) {
		t.Errorf("missing file should yield not_found, got %v", err)
	}
}

func TestDeleteClearsCurrent(t *testing.T) {
	m, _ := newTestManager(t)

	if err := m.Store().Save("a", []byte("port: 1\n")); err != nil {
		t.Fatal(err)
	}
	if err := m.Store().SetCurrent("a"); err != nil {
		t.Fatal(err)
	}
	if err := m.Store().Delete("a"); err != nil {
		t.Fatal(err)
	}

	current, err := m.Store().Current()
	if err != nil {
		t.Fatal(err)
	}
	if current != "" {
		t.Errorf("current pointer should be cleared, got %q", current)
	}
}

func TestSetCurrentMissingProfile(t *testing.T) {
	m, _ := newTestManager(t)
	if err := m.SetCurrent("ghost"); !errs.IsKind(err, errs.KindNotFound) {
		t.Errorf("switching to a missing profile should fail with not_found, got %v", err)
	}
}
