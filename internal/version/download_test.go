package version

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"mihomoctl/internal/errs"
)

func releaseFeed() []Release {
	return []Release{
		{TagName: "v1.18.0", Prerelease: false, PublishedAt: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)},
		{TagName: "v1.18.8", Prerelease: false, PublishedAt: time.Date(2024, 8, 1, 0, 0, 0, 0, time.UTC)},
		{TagName: "v1.19.0-beta.1", Prerelease: true, PublishedAt: time.Date(2024, 9, 1, 0, 0, 0, 0, time.UTC)},
		{TagName: "v1.19.0-alpha.2", Prerelease: true, PublishedAt: time.Date(2024, 10, 1, 0, 0, 0, 0, time.UTC)},
	}
}

func newFeedServer(t *testing.T, artifacts map[string][]byte) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/releases.json", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(releaseFeed())
	})
	mux.HandleFunc("/download/", func(w http.ResponseWriter, r *http.Request) {
		body, ok := artifacts[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Write(body)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func gzipped(t *testing.T, content []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	if _, err := gz.Write(content); err != nil {
		t.Fatal(err)
	}
	if err := gz.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestResolveChannel(t *testing.T) {
	srv := newFeedServer(t, nil)
	d := NewDownloader(srv.URL, 5*time.Second)
	ctx := context.Background()

	cases := []struct {
		channel Channel
		want    string
	}{
		{ChannelStable, "v1.18.8"},
		{ChannelBeta, "v1.19.0-beta.1"},
		{ChannelNightly, "v1.19.0-alpha.2"},
	}
	for _, c := range cases {
		got, err := d.ResolveChannel(ctx, c.channel)
		if err != nil {
			t.Fatalf("resolve %s: %v", c.channel, err)
		}
		if got != c.want {
			t.Errorf("channel %s resolved to %s, want %s", c.channel, got, c.want)
		}
	}
}

func TestResolveChannelUnreachable(t *testing.T) {
	d := NewDownloader("http://127.0.0.1:1", time.Second)
	_, err := d.ResolveChannel(context.Background(), ChannelStable)
	if !errs.IsKind(err, errs.KindNetwork) {
		t.Errorf("unreachable feed should yield network error, got %v", err)
	}
}

func TestFetch(t *testing.T) {
	payload := []byte("fake mihomo binary")
	srv := newFeedServer(t, map[string][]byte{
		"/download/v1.18.8/" + ArtifactName("v1.18.8"): gzipped(t, payload),
	})
	d := NewDownloader(srv.URL, 5*time.Second)

	dest := filepath.Join(t.TempDir(), "mihomo")
	if err := d.Fetch(context.Background(), "v1.18.8", dest); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(dest)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(data, payload) {
		t.Error("unpacked binary does not match payload")
	}
	info, err := os.Stat(dest)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm()&0o111 == 0 {
		t.Error("binary should be executable")
	}
}

func TestFetchMissingArtifact(t *testing.T) {
	srv := newFeedServer(t, nil)
	d := NewDownloader(srv.URL, 5*time.Second)

	err := d.Fetch(context.Background(), "v0.0.1", filepath.Join(t.TempDir(), "mihomo"))
	if !errs.IsKind(err, errs.KindNotFound) {
		t.Errorf("missing artifact should yield not_found, got %v", err)
	}
}

func TestFetchCorruptArtifact(t *testing.T) {
	srv := newFeedServer(t, map[string][]byte{
		"/download/v1.18.8/" + ArtifactName("v1.18.8"): []byte("not gzip at all"),
	})
	d := NewDownloader(srv.URL, 5*time.Second)

	dest := filepath.Join(t.TempDir(), "mihomo")
	err := d.Fetch(context.Background(), "v1.18.8", dest)
	if !errs.IsKind(err, errs.KindValidation) {
		t.Errorf("corrupt artifact should yield validation, got %v", err)
	}
	if _, statErr := os.Stat(dest); statErr == nil {
		t.Error("corrupt artifact should not leave a file behind")
	}
}

func TestFetchEmptyArtifact(t *testing.T) {
	srv := newFeedServer(t, map[string][]byte{
		"/download/v1.18.8/" + ArtifactName("v1.18.8"): gzipped(t, nil),
	})
	d := NewDownloader(srv.URL, 5*time.Second)

	err := d.Fetch(context.Background(), "v1.18.8", filepath.Join(t.TempDir(), "mihomo"))
	if !errs.IsKind(err, errs.KindValidation) {
		t.Errorf("empty artifact should yield validation, got %v", err)
	}
}
