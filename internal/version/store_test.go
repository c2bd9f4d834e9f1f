package version

import (
	"os"
	"path/filepath"
	"testing"

	"mihomoctl/internal/env"
)

func newTestStore(t *testing.T) (*Store, env.Home) {
	t.Helper()
	home := env.New(t.TempDir())
	if err := home.EnsureLayout(); err != nil {
		t.Fatal(err)
	}
	return NewStore(home), home
}

func installVersion(t *testing.T, s *Store, home env.Home, tag string) {
	t.Helper()
	staged, err := s.Stage(tag)
	if err != nil {
		t.Fatal(err)
	}
	bin := filepath.Join(staged, env.KernelBinaryName())
	if err := os.WriteFile(bin, []byte("#!/bin/sh\nexit 0\n"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := s.Publish(tag, staged); err != nil {
		t.Fatal(err)
	}
}

func TestStageAndPublish(t *testing.T) {
	s, home := newTestStore(t)

	if s.Installed("v1.18.0") {
		t.Fatal("fresh store should have nothing installed")
	}
	installVersion(t, s, home, "v1.18.0")
	if !s.Installed("v1.18.0") {
		t.Fatal("published version should be installed")
	}

	v, err := s.Get("v1.18.0")
	if err != nil {
		t.Fatal(err)
	}
	if v.BinaryPath != home.VersionBinary("v1.18.0") {
		t.Errorf("unexpected binary path %s", v.BinaryPath)
	}
	if v.InstalledAt.IsZero() {
		t.Error("install record should carry a timestamp")
	}
}

func TestStagedDirectoryInvisible(t *testing.T) {
	s, _ := newTestStore(t)

	staged, err := s.Stage("v1.18.0")
	if err != nil {
		t.Fatal(err)
	}
	defer s.Discard(staged)

	versions, err := s.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(versions) != 0 {
		t.Errorf("staged directory should not appear in list, got %d entries", len(versions))
	}
	if s.Installed("v1.18.0") {
		t.Error("staged version should not count as installed")
	}
}

func TestPartialDirectoryInvisible(t *testing.T) {
	s, home := newTestStore(t)

	// 没有二进制的残缺目录
	if err := os.MkdirAll(home.VersionDir("v1.17.0"), 0o755); err != nil {
		t.Fatal(err)
	}
	versions, err := s.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(versions) != 0 {
		t.Errorf("partial directory should not appear in list, got %d entries", len(versions))
	}
}

func TestPublishRace(t *testing.T) {
	s, _ := newTestStore(t)

	first, err := s.Stage("v1.18.0")
	if err != nil {
		t.Fatal(err)
	}
	second, err := s.Stage("v1.18.0")
	if err != nil {
		t.Fatal(err)
	}
	for _, staged := range []string{first, second} {
		bin := filepath.Join(staged, env.KernelBinaryName())
		if err := os.WriteFile(bin, []byte("binary"), 0o755); err != nil {
			t.Fatal(err)
		}
	}

	if err := s.Publish("v1.18.0", first); err != nil {
		t.Fatal(err)
	}
	// 后发布者不报错，丢弃自己的暂存副本
	if err := s.Publish("v1.18.0", second); err != nil {
		t.Fatalf("losing publisher should succeed silently: %v", err)
	}
	if _, err := os.Stat(second); !os.IsNotExist(err) {
		t.Error("losing staged copy should be removed")
	}
	if !s.Installed("v1.18.0") {
		t.Error("version should stay installed after the race")
	}
}

func TestDefaultPointer(t *testing.T) {
	s, _ := newTestStore(t)

	def, err := s.Default()
	if err != nil {
		t.Fatal(err)
	}
	if def != "" {
		t.Errorf("fresh store default should be empty, got %q", def)
	}

	if err := s.SetDefault("v9.9.9"); err == nil {
		t.Error("setting default to a missing version should fail")
	}
}

func TestRemoveClearsDefault(t *testing.T) {
	s, home := newTestStore(t)
	installVersion(t, s, home, "v1.18.0")

	if err := s.SetDefault("v1.18.0"); err != nil {
		t.Fatal(err)
	}
	if err := s.Remove("v1.18.0"); err != nil {
		t.Fatal(err)
	}
	def, err := s.Default()
	if err != nil {
		t.Fatal(err)
	}
	if def != "" {
		t.Errorf("default pointer should be cleared after removal, got %q", def)
	}
}

func TestDanglingDefaultTreatedAsUnset(t *testing.T) {
	s, home := newTestStore(t)
	installVersion(t, s, home, "v1.18.0")
	if err := s.SetDefault("v1.18.0"); err != nil {
		t.Fatal(err)
	}
	// 绕开Remove直接删目录，模拟外部干预
	if err := os.RemoveAll(home.VersionDir("v1.18.0")); err != nil {
		t.Fatal(err)
	}

	def, err := s.Default()
	if err != nil {
		t.Fatal(err)
	}
	if def != "" {
		t.Errorf("dangling pointer should read as unset, got %q", def)
	}
}
