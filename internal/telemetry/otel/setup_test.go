package otel

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel"
)

func TestNewProviders_EmptyEndpointIsNoop(t *testing.T) {
	ctx := context.Background()
	providers, err := NewProviders(ctx, "", "equiplink-test", false)
	if err != nil {
		t.Fatalf("NewProviders: %v", err)
	}
	if providers.TracerProvider == nil || providers.MeterProvider == nil || providers.LoggerProvider == nil {
		t.Fatal("all providers should be non-nil")
	}
	if err := providers.Shutdown(ctx); err != nil {
		t.Errorf("no-op shutdown: %v", err)
	}
	if err := providers.Shutdown(ctx); err != nil {
		t.Errorf("second shutdown: %v", err)
	}
}

func TestNewProviders_InvalidEndpoint(t *testing.T) {
	ctx := context.Background()
	for _, endpoint := range []string{"://invalid", "http://[invalid", "http://"} {
		if _, err := NewProviders(ctx, endpoint, "equiplink-test", false); err == nil {
			t.Errorf("NewProviders(%q): want error, got nil", endpoint)
		}
	}
}

func TestSetGlobal(t *testing.T) {
	ctx := context.Background()
	providers, err := NewProviders(ctx, "", "equiplink-test", false)
	if err != nil {
		t.Fatalf("NewProviders: %v", err)
	}
	oldTP := otel.GetTracerProvider()
	oldMP := otel.GetMeterProvider()
	defer func() {
		otel.SetTracerProvider(oldTP)
		otel.SetMeterProvider(oldMP)
	}()

	providers.SetGlobal()
	if otel.GetTracerProvider() == oldTP {
		t.Error("TracerProvider should be replaced")
	}
	if otel.GetMeterProvider() == oldMP {
		t.Error("MeterProvider should be replaced")
	}
}

func TestSetGlobal_NilProvidersDoNotPanic(t *testing.T) {
	p := &Providers{Shutdown: func(context.Context) error { return nil }}
	p.SetGlobal()
}
