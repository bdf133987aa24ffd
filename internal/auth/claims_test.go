package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func newTestCodec(t *testing.T, at time.Time) (*Codec, *time.Time) {
	t.Helper()
	codec, err := NewCodec("test-signing-secret")
	if err != nil {
		t.Fatalf("NewCodec: %v", err)
	}
	clock := at
	codec.now = func() time.Time { return clock }
	return codec, &clock
}

func TestNewCodecRequiresSecret(t *testing.T) {
	if _, err := NewCodec("   "); err == nil {
		t.Fatal("expected error for blank secret")
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	codec, _ := newTestCodec(t, time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))

	version := int64(3)
	token, err := codec.Encode(Claims{
		Role:             RoleUser,
		Version:          &version,
		TokenType:        TokenTypeAccess,
		RegisteredClaims: jwt.RegisteredClaims{Subject: "user-1"},
	}, 15*time.Minute)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	claims, err := codec.Decode(token)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if claims.Subject != "user-1" || claims.Role != RoleUser || claims.TokenType != TokenTypeAccess {
		t.Fatalf("unexpected claims: %+v", claims)
	}
	if claims.EmbeddedVersion() != 3 {
		t.Fatalf("EmbeddedVersion = %d, want 3", claims.EmbeddedVersion())
	}
	if claims.ID == "" {
		t.Fatal("token id must be populated")
	}
}

func TestEncodeValidation(t *testing.T) {
	codec, _ := newTestCodec(t, time.Now())
	if _, err := codec.Encode(Claims{TokenType: TokenTypeAccess}, time.Minute); err == nil {
		t.Fatal("expected error for missing subject")
	}
	if _, err := codec.Encode(Claims{
		TokenType:        TokenTypeAccess,
		RegisteredClaims: jwt.RegisteredClaims{Subject: "user-1"},
	}, 0); err == nil {
		t.Fatal("expected error for zero ttl")
	}
}

func TestDecodeMalformed(t *testing.T) {
	codec, _ := newTestCodec(t, time.Now())
	for _, token := range []string{"", "   ", "not.a.token", "a.b"} {
		if _, err := codec.Decode(token); !errors.Is(err, ErrMalformed) {
			t.Fatalf("Decode(%q): got %v, want ErrMalformed", token, err)
		}
	}
}

func TestDecodeBadSignature(t *testing.T) {
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	signer, _ := newTestCodec(t, at)
	token, err := signer.Encode(Claims{
		TokenType:        TokenTypeAccess,
		RegisteredClaims: jwt.RegisteredClaims{Subject: "user-1"},
	}, time.Minute)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	other, err := NewCodec("a-different-secret")
	if err != nil {
		t.Fatalf("NewCodec: %v", err)
	}
	other.now = func() time.Time { return at }
	if _, err := other.Decode(token); !errors.Is(err, ErrBadSignature) {
		t.Fatalf("got %v, want ErrBadSignature", err)
	}
}

func TestDecodeExpired(t *testing.T) {
	codec, clock := newTestCodec(t, time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	token, err := codec.Encode(Claims{
		TokenType:        TokenTypeAccess,
		RegisteredClaims: jwt.RegisteredClaims{Subject: "user-1"},
	}, time.Minute)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	// Within leeway of the deadline the token still verifies.
	*clock = clock.Add(time.Minute + clockSkewLeeway - time.Second)
	if _, err := codec.Decode(token); err != nil {
		t.Fatalf("within leeway: %v", err)
	}

	*clock = clock.Add(2 * clockSkewLeeway)
	if _, err := codec.Decode(token); !errors.Is(err, ErrExpired) {
		t.Fatalf("past leeway: got %v, want ErrExpired", err)
	}
}

func TestDecodeRejectsWrongIssuer(t *testing.T) {
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	signer, _ := newTestCodec(t, at)
	signer.issuer = "someone-else"
	token, err := signer.Encode(Claims{
		TokenType:        TokenTypeAccess,
		RegisteredClaims: jwt.RegisteredClaims{Subject: "user-1"},
	}, time.Minute)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	verifier, _ := newTestCodec(t, at)
	if _, err := verifier.Decode(token); !errors.Is(err, ErrMalformed) {
		t.Fatalf("got %v, want ErrMalformed", err)
	}
}

func TestRefreshClaimsOmitVersion(t *testing.T) {
	codec, _ := newTestCodec(t, time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	token, err := codec.Encode(Claims{
		TokenType:        TokenTypeRefresh,
		RegisteredClaims: jwt.RegisteredClaims{Subject: "user-1"},
	}, time.Hour)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	claims, err := codec.Decode(token)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if claims.Version != nil {
		t.Fatalf("refresh token carries version %d", *claims.Version)
	}
	if claims.EmbeddedVersion() != 0 {
		t.Fatalf("EmbeddedVersion = %d, want 0", claims.EmbeddedVersion())
	}
}
