package errs

import (
	"errors"
	"fmt"
	"testing"
)

func TestKindOf(t *testing.T) {
	if KindOf(NotFound("missing")) != KindNotFound {
		t.Error("expected not_found kind")
	}
	if KindOf(errors.New("plain")) != KindIO {
		t.Error("uncategorized error should default to io kind")
	}
}

func TestWrapPreservesKind(t *testing.T) {
	err := Conflict("version is running")
	wrapped := Wrap(err, "uninstall version '%s'", "v1.0.0")
	if KindOf(wrapped) != KindConflict {
		t.Errorf("wrap changed kind to %s", KindOf(wrapped))
	}
	if !errors.Is(wrapped, err) {
		t.Error("wrapped error should match original via errors.Is")
	}
}

func TestWrapNil(t *testing.T) {
	if Wrap(nil, "context") != nil {
		t.Error("wrapping nil should return nil")
	}
	if WrapKind(nil, KindNetwork, "context") != nil {
		t.Error("wrapping nil with kind should return nil")
	}
}

func TestWrapKindOverrides(t *testing.T) {
	err := WrapKind(fmt.Errorf("connection refused"), KindNetwork, "fetch feed")
	if KindOf(err) != KindNetwork {
		t.Errorf("got kind %s", KindOf(err))
	}
}

func TestIsKind(t *testing.T) {
	err := Wrap(Auth("secret rejected"), "call control plane")
	if !IsKind(err, KindAuth) {
		t.Error("expected auth kind through wrap")
	}
	if IsKind(errors.New("plain"), KindAuth) {
		t.Error("plain error should not match any kind")
	}
}

func TestExitCode(t *testing.T) {
	cases := []struct {
		err  error
		code int
	}{
		{nil, 0},
		{Network("unreachable"), 2},
		{NotFound("missing"), 3},
		{Conflict("busy"), 4},
		{Validation("bad yaml"), 5},
		{Auth("rejected"), 6},
		{Process("spawn failed"), 7},
		{errors.New("plain"), 1},
	}
	for _, c := range cases {
		if got := ExitCode(c.err); got != c.code {
			t.Errorf("ExitCode(%v) = %d, want %d", c.err, got, c.code)
		}
	}
}
