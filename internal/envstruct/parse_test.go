package envstruct_test

import (
	"errors"
	"testing"

	"github.com/yuv-man/habeat-server/internal/envstruct"
)

func lookupFromMap(env map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		val, ok := env[key]
		return val, ok
	}
}

func TestPopulate(t *testing.T) {
	type cfg struct {
		Addr    string `env:"TEST_ADDR" envDefault:"localhost:8080"`
		APIKey  string `env:"TEST_API_KEY"`
		Ignored string
	}

	tests := []struct {
		name       string
		env        map[string]string
		wantAddr   string
		wantAPIKey string
		wantErr    bool
	}{
		{
			name:       "all variables set",
			env:        map[string]string{"TEST_ADDR": "localhost:9999", "TEST_API_KEY": "secret"},
			wantAddr:   "localhost:9999",
			wantAPIKey: "secret",
		},
		{
			name:       "default applied when unset",
			env:        map[string]string{"TEST_API_KEY": "secret"},
			wantAddr:   "localhost:8080",
			wantAPIKey: "secret",
		},
		{
			name:    "required variable missing",
			env:     map[string]string{},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var c cfg
			err := envstruct.Populate(&c, lookupFromMap(tt.env))
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				if !errors.Is(err, envstruct.ErrEnvNotSet) {
					t.Errorf("expected ErrEnvNotSet, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Populate: %v", err)
			}
			if c.Addr != tt.wantAddr {
				t.Errorf("Addr = %q, want %q", c.Addr, tt.wantAddr)
			}
			if c.APIKey != tt.wantAPIKey {
				t.Errorf("APIKey = %q, want %q", c.APIKey, tt.wantAPIKey)
			}
			if c.Ignored != "" {
				t.Errorf("Ignored = %q, want empty", c.Ignored)
			}
		})
	}
}

func TestPopulateRejectsNonPointer(t *testing.T) {
	type cfg struct {
		Addr string `env:"TEST_ADDR"`
	}
	if err := envstruct.Populate(cfg{}, lookupFromMap(nil)); err == nil {
		t.Fatal("expected error for non-pointer argument")
	}
}

func TestPopulateRejectsNonStringField(t *testing.T) {
	type cfg struct {
		Count int `env:"TEST_COUNT"`
	}
	var c cfg
	if err := envstruct.Populate(&c, lookupFromMap(map[string]string{"TEST_COUNT": "3"})); err == nil {
		t.Fatal("expected error for non-string field")
	}
}
