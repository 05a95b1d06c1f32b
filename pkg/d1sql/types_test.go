package d1sql_test

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/vvka-141/d1sql/pkg/d1sql"
)

func TestConfig_Validate(t *testing.T) {
	valid := func() d1sql.Config {
		cfg := d1sql.DefaultConfig()
		cfg.AccountID = "acct"
		cfg.DatabaseID = "db"
		cfg.Token = "secret"
		return cfg
	}

	tests := []struct {
		name      string
		mutate    func(*d1sql.Config)
		wantError bool
	}{
		{"valid config", func(*d1sql.Config) {}, false},
		{"zero retries is valid", func(c *d1sql.Config) { c.Retries = 0 }, false},
		{"missing database", func(c *d1sql.Config) { c.DatabaseID = "" }, true},
		{"missing token", func(c *d1sql.Config) { c.Token = "" }, true},
		{"missing account", func(c *d1sql.Config) { c.AccountID = "" }, true},
		{"negative retries", func(c *d1sql.Config) { c.Retries = -1 }, true},
		{"negative timeout", func(c *d1sql.Config) { c.Timeout = -time.Second }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()

			if tt.wantError {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				if !errors.Is(err, d1sql.ErrInvalidConfig) {
					t.Errorf("expected ErrInvalidConfig, got %v", err)
				}
				return
			}
			if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestConfig_Validate_ReportsAllMissingFields(t *testing.T) {
	cfg := d1sql.DefaultConfig()
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error")
	}

	msg := err.Error()
	for _, want := range []string{"database ID", "API token", "account ID"} {
		if !strings.Contains(msg, want) {
			t.Errorf("expected %q in %q", want, msg)
		}
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := d1sql.DefaultConfig()

	if cfg.Retries != 2 {
		t.Errorf("Retries = %d, want 2", cfg.Retries)
	}
	if cfg.RetryDelay != 100*time.Millisecond {
		t.Errorf("RetryDelay = %v, want 100ms", cfg.RetryDelay)
	}
	if cfg.Timeout != 10*time.Second {
		t.Errorf("Timeout = %v, want 10s", cfg.Timeout)
	}
	if cfg.ConnectTimeout != 5*time.Second {
		t.Errorf("ConnectTimeout = %v, want 5s", cfg.ConnectTimeout)
	}
	if cfg.APIURL != d1sql.DefaultAPIURL {
		t.Errorf("APIURL = %q", cfg.APIURL)
	}
	if cfg.ErrMode != d1sql.ErrModeException || cfg.TxPolicy != d1sql.TxPolicyReject {
		t.Errorf("unexpected modes: %v %v", cfg.ErrMode, cfg.TxPolicy)
	}
}

func TestParseTxPolicy(t *testing.T) {
	tests := []struct {
		in      string
		want    d1sql.TxPolicy
		wantErr bool
	}{
		{"", d1sql.TxPolicyReject, false},
		{"reject", d1sql.TxPolicyReject, false},
		{"Counter", d1sql.TxPolicyCounter, false},
		{"savepoint", d1sql.TxPolicyReject, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := d1sql.ParseTxPolicy(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseTxPolicy(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseTxPolicy(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}
