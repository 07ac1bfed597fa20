package config

import (
	"context"
	"errors"
	"testing"
	"time"
)

func baseEnv() map[string]string {
	return map[string]string{
		"API_FIREBASE_PROJECT_ID": "rastuci-test",
	}
}

func loadForTest(t *testing.T, env map[string]string, opts ...Option) Config {
	t.Helper()
	opts = append([]Option{WithEnvFile(""), WithoutSystemEnv(), WithEnvMap(env)}, opts...)
	cfg, err := Load(context.Background(), opts...)
	if err != nil {
		t.Fatalf("unexpected error loading config: %v", err)
	}
	return cfg
}

func TestLoadDefaults(t *testing.T) {
	cfg := loadForTest(t, baseEnv())

	if cfg.Server.Port != defaultPort {
		t.Errorf("expected default port %s, got %s", defaultPort, cfg.Server.Port)
	}
	if cfg.Server.ReadTimeout != defaultReadTimeout {
		t.Errorf("expected default read timeout, got %v", cfg.Server.ReadTimeout)
	}
	if cfg.Firestore.ProjectID != "rastuci-test" {
		t.Errorf("expected firestore project to inherit firebase project, got %s", cfg.Firestore.ProjectID)
	}
	if cfg.PubSub.ProjectID != "rastuci-test" {
		t.Errorf("expected pubsub project to inherit firebase project, got %s", cfg.PubSub.ProjectID)
	}
	if cfg.MercadoPago.Currency != defaultCurrency {
		t.Errorf("expected default currency %s, got %s", defaultCurrency, cfg.MercadoPago.Currency)
	}
	if cfg.CorreoArgentino.BaseURL != defaultCorreoBaseURL {
		t.Errorf("unexpected courier base url %s", cfg.CorreoArgentino.BaseURL)
	}
	if cfg.CorreoArgentino.OriginPostalCode != defaultOriginPostalCode {
		t.Errorf("unexpected origin postal code %s", cfg.CorreoArgentino.OriginPostalCode)
	}
	if cfg.Security.Environment != defaultEnvironment {
		t.Errorf("unexpected environment %s", cfg.Security.Environment)
	}
	if cfg.Security.WebhookClockSkew != defaultWebhookClockSkew {
		t.Errorf("unexpected webhook clock skew %v", cfg.Security.WebhookClockSkew)
	}
	if cfg.Idempotency.Header != defaultIdempotencyHeader {
		t.Errorf("unexpected idempotency header %s", cfg.Idempotency.Header)
	}
}

func TestLoadOverrides(t *testing.T) {
	env := map[string]string{
		"API_SERVER_PORT":                 "9090",
		"API_SERVER_READ_TIMEOUT":         "5s",
		"API_FIREBASE_PROJECT_ID":         "rastuci-prod",
		"API_FIRESTORE_PROJECT_ID":        "rastuci-db",
		"API_MERCADOPAGO_ACCESS_TOKEN":    "APP_USR-token",
		"API_MERCADOPAGO_SUCCESS_URL":     "https://rastuci.com/checkout/success",
		"API_CORREO_USERNAME":             "tienda@rastuci.com",
		"API_CORREO_CUSTOMER_ID":          "0000552220",
		"API_CORREO_ORIGIN_POSTAL_CODE":   "1642",
		"API_PUBSUB_NOTIFICATION_TOPIC":   "order-notifications",
		"API_SECURITY_ENVIRONMENT":        "Production",
		"API_SECURITY_WEBHOOK_CLOCK_SKEW": "10m",
	}

	cfg := loadForTest(t, env)

	if cfg.Server.Port != "9090" {
		t.Errorf("unexpected port %s", cfg.Server.Port)
	}
	if cfg.Server.ReadTimeout != 5*time.Second {
		t.Errorf("unexpected read timeout %v", cfg.Server.ReadTimeout)
	}
	if cfg.Firestore.ProjectID != "rastuci-db" {
		t.Errorf("unexpected firestore project %s", cfg.Firestore.ProjectID)
	}
	if cfg.MercadoPago.AccessToken != "APP_USR-token" {
		t.Errorf("unexpected access token %s", cfg.MercadoPago.AccessToken)
	}
	if cfg.MercadoPago.SuccessURL != "https://rastuci.com/checkout/success" {
		t.Errorf("unexpected success url %s", cfg.MercadoPago.SuccessURL)
	}
	if cfg.CorreoArgentino.CustomerID != "0000552220" {
		t.Errorf("unexpected customer id %s", cfg.CorreoArgentino.CustomerID)
	}
	if cfg.CorreoArgentino.OriginPostalCode != "1642" {
		t.Errorf("unexpected origin postal code %s", cfg.CorreoArgentino.OriginPostalCode)
	}
	if cfg.PubSub.NotificationTopic != "order-notifications" {
		t.Errorf("unexpected topic %s", cfg.PubSub.NotificationTopic)
	}
	if cfg.Security.Environment != "production" {
		t.Errorf("expected lowercased environment, got %s", cfg.Security.Environment)
	}
	if cfg.Security.WebhookClockSkew != 10*time.Minute {
		t.Errorf("unexpected clock skew %v", cfg.Security.WebhookClockSkew)
	}
}

func TestLoadResolvesSecretReferences(t *testing.T) {
	env := baseEnv()
	env["API_MERCADOPAGO_ACCESS_TOKEN"] = "sm://projects/rastuci/secrets/mp-token"
	env["API_CORREO_PASSWORD"] = "secret://projects/rastuci/secrets/correo-pass"

	resolved := map[string]string{
		"secret://projects/rastuci/secrets/mp-token":    "APP_USR-resolved",
		"secret://projects/rastuci/secrets/correo-pass": "hunter2",
	}

	cfg := loadForTest(t, env, WithSecretResolver(SecretResolverFunc(func(_ context.Context, ref string) (string, error) {
		value, ok := resolved[ref]
		if !ok {
			return "", errors.New("unknown ref " + ref)
		}
		return value, nil
	})))

	if cfg.MercadoPago.AccessToken != "APP_USR-resolved" {
		t.Errorf("expected resolved access token, got %s", cfg.MercadoPago.AccessToken)
	}
	if cfg.CorreoArgentino.Password != "hunter2" {
		t.Errorf("expected resolved courier password, got %s", cfg.CorreoArgentino.Password)
	}
}

func TestLoadSecretResolutionFailure(t *testing.T) {
	env := baseEnv()
	env["API_MERCADOPAGO_ACCESS_TOKEN"] = "sm://projects/rastuci/secrets/mp-token"

	_, err := Load(context.Background(),
		WithEnvFile(""), WithoutSystemEnv(), WithEnvMap(env),
		WithSecretResolver(SecretResolverFunc(func(context.Context, string) (string, error) {
			return "", errors.New("permission denied")
		})),
	)

	var secretErr *SecretError
	if !errors.As(err, &secretErr) {
		t.Fatalf("expected SecretError, got %v", err)
	}
	if secretErr.Ref != "secret://projects/rastuci/secrets/mp-token" {
		t.Errorf("unexpected ref %s", secretErr.Ref)
	}
}

func TestLoadValidation(t *testing.T) {
	_, err := Load(context.Background(), WithEnvFile(""), WithoutSystemEnv(), WithEnvMap(map[string]string{}))

	var validationErr *ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}

	fields := validationErr.Fields()
	found := false
	for _, field := range fields {
		if field == "Firebase.ProjectID" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected Firebase.ProjectID in %v", fields)
	}
}

func TestLoadRequiredSecrets(t *testing.T) {
	env := baseEnv()

	_, err := Load(context.Background(),
		WithEnvFile(""), WithoutSystemEnv(), WithEnvMap(env),
		WithRequiredSecrets("MercadoPago.AccessToken"),
	)

	var missingErr *MissingSecretsError
	if !errors.As(err, &missingErr) {
		t.Fatalf("expected MissingSecretsError, got %v", err)
	}
	names := missingErr.Names()
	if len(names) != 1 || names[0] != "MercadoPago.AccessToken" {
		t.Errorf("unexpected missing secrets %v", names)
	}
}
