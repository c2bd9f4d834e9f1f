package mihomo

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"mihomoctl/internal/errs"
)

const testSecret = "test-secret"

// 控制面假实现，校验Bearer并记录收到的请求
type fakeControlPlane struct {
	mux      *httptest.Server
	switched map[string]string
	closed   []string
}

func newFakeControlPlane(t *testing.T) *fakeControlPlane {
	t.Helper()
	f := &fakeControlPlane{switched: map[string]string{}}

	mux := http.NewServeMux()
	auth := func(h http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Authorization") != "Bearer "+testSecret {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			h(w, r)
		}
	}
	mux.HandleFunc("/version", auth(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(Version{Version: "v1.18.8", Meta: true})
	}))
	mux.HandleFunc("/proxies", auth(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(proxiesResponse{Proxies: map[string]Proxy{
			"DIRECT":  {Name: "DIRECT", Type: "Direct"},
			"HK-01":   {Name: "HK-01", Type: "Shadowsocks", History: []DelayHistory{{Delay: 42}}},
			"香港节点": {Name: "香港节点", Type: "Selector", Now: "HK-01", All: []string{"DIRECT", "HK-01"}},
		}})
	}))
	mux.HandleFunc("/proxies/", auth(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPut:
			var body map[string]string
			json.NewDecoder(r.Body).Decode(&body)
			f.switched[r.URL.Path] = body["name"]
			w.WriteHeader(http.StatusNoContent)
		case http.MethodGet:
			json.NewEncoder(w).Encode(DelayResult{Delay: 123})
		}
	}))
	mux.HandleFunc("/connections", auth(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodDelete {
			f.closed = append(f.closed, "*")
			w.WriteHeader(http.StatusNoContent)
			return
		}
		json.NewEncoder(w).Encode(ConnectionsSnapshot{
			DownloadTotal: 1024,
			UploadTotal:   512,
			Connections:   []Connection{{ID: "c1"}},
		})
	}))
	mux.HandleFunc("/connections/", auth(func(w http.ResponseWriter, r *http.Request) {
		f.closed = append(f.closed, r.URL.Path)
		w.WriteHeader(http.StatusNoContent)
	}))

	f.mux = httptest.NewServer(mux)
	t.Cleanup(f.mux.Close)
	return f
}

func (f *fakeControlPlane) client(secret string) *Client {
	return NewClient(f.mux.URL, secret, Options{Timeout: 2 * time.Second})
}

func TestVersion(t *testing.T) {
	f := newFakeControlPlane(t)
	v, err := f.client(testSecret).Version(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if v.Version != "v1.18.8" || !v.Meta {
		t.Errorf("unexpected version %+v", v)
	}
}

func TestAuthRejected(t *testing.T) {
	f := newFakeControlPlane(t)
	_, err := f.client("wrong").Version(context.Background())
	if !errs.IsKind(err, errs.KindAuth) {
		t.Errorf("wrong secret should yield auth error, got %v", err)
	}
}

func TestUnreachableControlPlane(t *testing.T) {
	c := NewClient("http://127.0.0.1:1", testSecret, Options{Timeout: time.Second})
	_, err := c.Version(context.Background())
	if !errs.IsKind(err, errs.KindNetwork) {
		t.Errorf("unreachable control plane should yield network error, got %v", err)
	}
}

func TestProxiesSplitsGroups(t *testing.T) {
	f := newFakeControlPlane(t)
	ctx := context.Background()
	c := f.client(testSecret)

	nodes, err := c.Proxies(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := nodes["HK-01"]; !ok {
		t.Error("node list should include HK-01")
	}
	if _, ok := nodes["香港节点"]; ok {
		t.Error("node list should not include selector groups")
	}

	groups, err := c.ProxyGroups(ctx)
	if err != nil {
		t.Fatal(err)
	}
	g, ok := groups["香港节点"]
	if !ok {
		t.Fatal("group list should include the selector")
	}
	if g.Now != "HK-01" {
		t.Errorf("group now = %s", g.Now)
	}
}

func TestSwitchProxy(t *testing.T) {
	f := newFakeControlPlane(t)
	if err := f.client(testSecret).SwitchProxy(context.Background(), "香港节点", "DIRECT"); err != nil {
		t.Fatal(err)
	}
	// 组名里的非ASCII字符要被转义进路径
	got, ok := f.switched["/proxies/香港节点"]
	if !ok || got != "DIRECT" {
		t.Errorf("switch was not recorded, switched=%v", f.switched)
	}
}

func TestTestDelay(t *testing.T) {
	f := newFakeControlPlane(t)
	result, err := f.client(testSecret).TestDelay(context.Background(), "HK-01", "", 0)
	if err != nil {
		t.Fatal(err)
	}
	if result.Delay != 123 {
		t.Errorf("delay = %d", result.Delay)
	}
}

func TestConnections(t *testing.T) {
	f := newFakeControlPlane(t)
	ctx := context.Background()
	c := f.client(testSecret)

	snap, err := c.Connections(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if snap.DownloadTotal != 1024 || len(snap.Connections) != 1 {
		t.Errorf("unexpected snapshot %+v", snap)
	}

	if err := c.CloseConnection(ctx, "c1"); err != nil {
		t.Fatal(err)
	}
	if err := c.CloseAllConnections(ctx); err != nil {
		t.Fatal(err)
	}
	if len(f.closed) != 2 {
		t.Errorf("expected two close calls, got %v", f.closed)
	}
}

func TestNotFoundMapped(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()
	c := NewClient(srv.URL, "", Options{Timeout: time.Second})
	_, err := c.Version(context.Background())
	if !errs.IsKind(err, errs.KindNotFound) {
		t.Errorf("404 should map to not_found, got %v", err)
	}
}

func TestLogLevelFilter(t *testing.T) {
	if LogLevelDebug.AtLeast(LogLevelInfo) {
		t.Error("debug should not pass an info threshold")
	}
	if !LogLevelError.AtLeast(LogLevelInfo) {
		t.Error("error should pass an info threshold")
	}
	if !LogLevelInfo.AtLeast(LogLevelInfo) {
		t.Error("threshold level itself should pass")
	}
}
