package d1

import (
	"context"
	"fmt"
	"os"
)

// TokenProvider supplies the bearer token for each request.
type TokenProvider interface {
	// GetToken returns the API token to send.
	GetToken(ctx context.Context) (string, error)

	// String returns a human-readable description for logging.
	// Must NOT include the token.
	String() string
}

// StaticTokenProvider returns a fixed token.
type StaticTokenProvider struct {
	token string
}

func NewStaticTokenProvider(token string) *StaticTokenProvider {
	return &StaticTokenProvider{token: token}
}

func (p *StaticTokenProvider) GetToken(ctx context.Context) (string, error) {
	if p.token == "" {
		return "", fmt.Errorf("no API token configured")
	}
	return p.token, nil
}

func (p *StaticTokenProvider) String() string {
	return "StaticToken"
}

// EnvTokenProvider reads the token from an environment variable on every request,
// so a rotated token is picked up without reopening the connection.
type EnvTokenProvider struct {
	name string
}

func NewEnvTokenProvider(name string) *EnvTokenProvider {
	return &EnvTokenProvider{name: name}
}

func (p *EnvTokenProvider) GetToken(ctx context.Context) (string, error) {
	token := os.Getenv(p.name)
	if token == "" {
		return "", fmt.Errorf("environment variable %s is not set", p.name)
	}
	return token, nil
}

func (p *EnvTokenProvider) String() string {
	return fmt.Sprintf("EnvToken(%s)", p.name)
}
