package security

import (
	"bytes"
	"context"
	"strings"
	"testing"
)

func TestAppKeySecretProvider_EncryptDecryptRoundTrip(t *testing.T) {
	provider, err := NewAppKeySecretProviderFromString("super-secret-test-key", WithKeyID("addons-v1"), WithVersion(3))
	if err != nil {
		t.Fatalf("new provider: %v", err)
	}

	plaintext := []byte("oauth-secret-123")
	encrypted, err := provider.Encrypt(context.Background(), plaintext)
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	if bytes.Contains(encrypted, plaintext) {
		t.Fatalf("expected ciphertext not to contain the plaintext")
	}
	if !IsEnvelope(string(encrypted)) {
		t.Fatalf("expected envelope prefix, got %q", encrypted)
	}

	meta, err := ParseEnvelopeMetadata(encrypted)
	if err != nil {
		t.Fatalf("parse metadata: %v", err)
	}
	if meta.KeyID != "addons-v1" || meta.Version != 3 || meta.Algorithm != envelopeAlgorithm {
		t.Fatalf("unexpected envelope metadata %+v", meta)
	}

	decrypted, err := provider.Decrypt(context.Background(), encrypted)
	if err != nil {
		t.Fatalf("decrypt: %v", err)
	}
	if !bytes.Equal(decrypted, plaintext) {
		t.Fatalf("expected roundtrip plaintext; got %q", decrypted)
	}
}

func TestAppKeySecretProvider_NoncesDiffer(t *testing.T) {
	provider, err := NewAppKeySecretProviderFromString("0123456789abcdef0123456789abcdef")
	if err != nil {
		t.Fatalf("new provider: %v", err)
	}
	first, _ := provider.Encrypt(context.Background(), []byte("same"))
	second, _ := provider.Encrypt(context.Background(), []byte("same"))
	if bytes.Equal(first, second) {
		t.Fatalf("expected distinct ciphertexts for repeated plaintext")
	}
}

func TestAppKeySecretProvider_RejectsMetadataMismatch(t *testing.T) {
	issuer, err := NewAppKeySecretProviderFromString("super-secret-test-key", WithKeyID("addons-v1"), WithVersion(1))
	if err != nil {
		t.Fatalf("new issuer provider: %v", err)
	}
	receiver, err := NewAppKeySecretProviderFromString("super-secret-test-key", WithKeyID("addons-v2"), WithVersion(2))
	if err != nil {
		t.Fatalf("new receiver provider: %v", err)
	}

	encrypted, err := issuer.Encrypt(context.Background(), []byte("payload"))
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	if _, err := receiver.Decrypt(context.Background(), encrypted); err == nil {
		t.Fatalf("expected metadata mismatch error")
	}
}

func TestAppKeySecretProvider_RejectsWrongKey(t *testing.T) {
	issuer, _ := NewAppKeySecretProviderFromString("key-one")
	receiver, _ := NewAppKeySecretProviderFromString("key-two")

	encrypted, err := issuer.Encrypt(context.Background(), []byte("payload"))
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	if _, err := receiver.Decrypt(context.Background(), encrypted); err == nil {
		t.Fatalf("expected authentication failure for a different key")
	}
}

func TestAppKeySecretProvider_InputValidation(t *testing.T) {
	if _, err := NewAppKeySecretProviderFromString("   "); err == nil {
		t.Fatalf("expected empty key material to be rejected")
	}
	provider, _ := NewAppKeySecretProviderFromString("k")
	if _, err := provider.Encrypt(context.Background(), nil); err == nil {
		t.Fatalf("expected empty plaintext to be rejected")
	}
	if _, err := provider.Decrypt(context.Background(), []byte("plain-secret")); err == nil || !strings.Contains(err.Error(), "prefix") {
		t.Fatalf("expected prefix error for plain values, got %v", err)
	}
	if IsEnvelope("plain-secret") {
		t.Fatalf("plain values are not envelopes")
	}
}
