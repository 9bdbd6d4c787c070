package accounts

import (
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
)

var (
	botID   = uuid.MustParse("24348246-6791-4ac0-9d86-b948cd6a0e46")
	otherID = uuid.MustParse("8dada2c8-67a6-4434-9dec-570d244e78ee")
)

func newRegistry(t *testing.T) *Registry {
	t.Helper()
	r, err := NewRegistry(
		Account{ID: botID, Host: "cts.example.com", SecretKey: "bee001"},
		Account{ID: otherID, Host: "cts.other.com", SecretKey: "secret"},
	)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	return r
}

func TestAccountLookup(t *testing.T) {
	r := newRegistry(t)

	acc, err := r.Account(botID)
	if err != nil {
		t.Fatalf("Account: %v", err)
	}
	if acc.Host != "cts.example.com" {
		t.Errorf("host = %q", acc.Host)
	}

	_, err = r.Account(uuid.New())
	var unknown *UnknownBotAccountError
	if !errors.As(err, &unknown) {
		t.Fatalf("expected UnknownBotAccountError, got %v", err)
	}
	if _, err := r.Host(uuid.New()); !errors.As(err, &unknown) {
		t.Fatalf("Host: expected UnknownBotAccountError, got %v", err)
	}
}

func TestDuplicateAccountRejected(t *testing.T) {
	acc := Account{ID: botID, Host: "h", SecretKey: "s"}
	if _, err := NewRegistry(acc, acc); err == nil {
		t.Fatal("expected error for duplicate account")
	}
}

func TestRegistrationOrder(t *testing.T) {
	r := newRegistry(t)
	ids := r.IDs()
	if len(ids) != 2 || ids[0] != botID || ids[1] != otherID {
		t.Errorf("IDs() = %v", ids)
	}
}

func TestTokenCache(t *testing.T) {
	r := newRegistry(t)

	if _, ok := r.Token(botID); ok {
		t.Fatal("expected empty cache")
	}
	r.SetToken(botID, "token")
	if tok, ok := r.Token(botID); !ok || tok != "token" {
		t.Fatalf("Token() = %q, %v", tok, ok)
	}
	r.InvalidateToken(botID)
	if _, ok := r.Token(botID); ok {
		t.Fatal("expected token to be invalidated")
	}
}

func TestTokenCacheConcurrentWriters(t *testing.T) {
	r := newRegistry(t)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.SetToken(botID, "token")
			r.Token(botID)
		}()
	}
	wg.Wait()

	if tok, _ := r.Token(botID); tok != "token" {
		t.Errorf("Token() = %q", tok)
	}
}

func TestSignature(t *testing.T) {
	r := newRegistry(t)

	sig, err := r.Signature(botID)
	if err != nil {
		t.Fatalf("Signature: %v", err)
	}
	if len(sig) != 64 {
		t.Fatalf("signature length = %d, want 64", len(sig))
	}
	for _, c := range sig {
		if c >= 'a' && c <= 'f' {
			t.Fatalf("signature %q is not uppercase", sig)
		}
	}

	again, _ := r.Signature(botID)
	if sig != again {
		t.Error("signature is not deterministic")
	}
	other, _ := r.Signature(otherID)
	if sig == other {
		t.Error("different accounts produced the same signature")
	}
}

func TestBuildSignatureKnownValue(t *testing.T) {
	want := "904E39D3BC549C71F4A4BDA66AFCDA6FC90D471A64889B45CC8D2288E56526AD"
	if got := BuildSignature(otherID, "secret"); got != want {
		t.Fatalf("BuildSignature() = %s, want %s", got, want)
	}
}
