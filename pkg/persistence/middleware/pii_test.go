package middleware_test

import (
	"context"
	"testing"

	"github.com/aretw0/bindery/pkg/adapters/memory"
	"github.com/aretw0/bindery/pkg/persistence/middleware"
	"github.com/aretw0/bindery/pkg/tree"
)

func TestPIIMiddleware_Masking(t *testing.T) {
	underlyingStore := memory.NewStore()
	mw, err := middleware.NewPIIMiddleware([]string{"password", "ssn"})
	if err != nil {
		t.Fatal(err)
	}
	secureStore := mw(underlyingStore)

	ctx := context.Background()
	root := tree.FromNative(map[string]any{
		"username":      "jdoe",
		"user_password": "secret123",
		"details": map[string]any{
			"address":    "123 St",
			"ssn_number": "999-99-9999",
		},
		"contacts": []any{map[string]any{"password": "x"}},
	}).(*tree.Object)

	if err := secureStore.Save(ctx, "page", root); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	if root.Get("user_password") != "secret123" {
		t.Error("Middleware modified the live root!")
	}

	stored, err := underlyingStore.Load(ctx, "page")
	if err != nil {
		t.Fatalf("Underlying load failed: %v", err)
	}
	if stored.Get("username") != "jdoe" {
		t.Error("Username shouldn't be masked")
	}
	if stored.Get("user_password") != middleware.Mask {
		t.Errorf("Password should be masked, got: %v", stored.Get("user_password"))
	}
	details := stored.Get("details").(*tree.Object)
	if details.Get("ssn_number") != middleware.Mask {
		t.Errorf("Nested SSN should be masked, got: %v", details.Get("ssn_number"))
	}
	if details.Get("address") != "123 St" {
		t.Errorf("Address shouldn't be masked, got: %v", details.Get("address"))
	}
	contact := stored.Get("contacts").(*tree.Array).At(0).(*tree.Object)
	if contact.Get("password") != middleware.Mask {
		t.Errorf("Password inside array should be masked, got: %v", contact.Get("password"))
	}
}

func TestPIIMiddleware_InvalidPattern(t *testing.T) {
	if _, err := middleware.NewPIIMiddleware([]string{"("}); err == nil {
		t.Error("Expected error for invalid pattern")
	}
}

func TestChain_MasksBeforeEncrypting(t *testing.T) {
	underlyingStore := memory.NewStore()
	pii, err := middleware.NewPIIMiddleware([]string{"token"})
	if err != nil {
		t.Fatal(err)
	}
	enc, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: generateKey(t)})
	if err != nil {
		t.Fatal(err)
	}
	store := middleware.Chain(underlyingStore, pii, enc)

	root := tree.NewObject()
	root.Set("token", "abc")
	ctx := context.Background()
	if err := store.Save(ctx, "page", root); err != nil {
		t.Fatal(err)
	}

	loaded, err := store.Load(ctx, "page")
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Get("token") != middleware.Mask {
		t.Errorf("Expected masked token after decryption, got %v", loaded.Get("token"))
	}
	raw, err := underlyingStore.Load(ctx, "page")
	if err != nil {
		t.Fatal(err)
	}
	if raw.Has("token") {
		t.Error("Expected only the envelope in the wrapped store")
	}
}
