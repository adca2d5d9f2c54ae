package main

import (
	"strings"
	"testing"
)

func TestRunReturnsStartupErrors(t *testing.T) {
	tests := []struct {
		name  string
		env   map[string]string
		match string
	}{
		{name: "missing jwt secret", env: map[string]string{"JWT_SECRET": "", "DB_URL": "postgres://localhost/tutor"}, match: "load config"},
		{name: "missing database url", env: map[string]string{"JWT_SECRET": "secret", "DB_URL": ""}, match: "DB_URL is required"},
		{name: "malformed database url", env: map[string]string{"JWT_SECRET": "secret", "DB_URL": "postgres://%zz"}, match: "connect database"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("APP_ENV", "test")
			t.Setenv("REDIS_URL", "")
			for key, value := range tt.env {
				t.Setenv(key, value)
			}

			err := run()
			if err == nil {
				t.Fatalf("expected an error")
			}
			if !strings.Contains(err.Error(), tt.match) {
				t.Fatalf("expected %q in %v", tt.match, err)
			}
		})
	}
}
