package errorsx

import "testing"

func TestWrapAndReason(t *testing.T) {
	err := Wrap(assertErr{}, ReasonToolBackend)
	if Reason(err) != ReasonToolBackend {
		t.Fatalf("expected reason %s, got %s", ReasonToolBackend, Reason(err))
	}
	if !HasReason(err, ReasonToolBackend) {
		t.Fatalf("expected HasReason true")
	}
}

func TestWrapPreservesExistingReason(t *testing.T) {
	first := Wrap(assertErr{}, ReasonMicDenied)
	second := Wrap(first, ReasonAgentError)
	if Reason(second) != ReasonMicDenied {
		t.Fatalf("expected reason preserved, got %s", Reason(second))
	}
}

func TestFatal(t *testing.T) {
	if !Fatal(Wrap(assertErr{}, ReasonMicDenied)) {
		t.Fatalf("mic denial must be fatal to the session")
	}
	if Fatal(Wrap(assertErr{}, ReasonToolBackend)) {
		t.Fatalf("tool backend failure must not be fatal")
	}
}

type assertErr struct{}

func (assertErr) Error() string { return "boom" }
