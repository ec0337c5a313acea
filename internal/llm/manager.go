package llm

import (
	"context"
	"strings"
	"time"

	"github.com/askdb/askdb/internal/config"
	"github.com/askdb/askdb/internal/errors"
)

// Manager wraps a provider with scoped timeouts and retry behavior so a
// stuck or transiently failing backend surfaces as a single typed error.
type Manager struct {
	provider Service
	config   ManagerConfig
}

// ManagerConfig configures the manager's retry and timeout behavior
type ManagerConfig struct {
	RetryAttempts int
	RetryDelay    time.Duration
	Timeout       time.Duration
}

// NewManager creates a manager around the given provider
func NewManager(provider Service, cfg ManagerConfig) *Manager {
	return &Manager{
		provider: provider,
		config:   cfg,
	}
}

// NewManagerFromConfig builds a provider from application configuration
// and wraps it in a manager.
func NewManagerFromConfig(cfg config.LLMConfig) (*Manager, error) {
	timeout, err := time.ParseDuration(cfg.Timeout)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeConfig, "invalid LLM timeout")
	}

	retryDelay, err := time.ParseDuration(cfg.RetryDelay)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeConfig, "invalid LLM retry delay")
	}

	var provider Service

	switch strings.ToLower(cfg.Provider) {
	case ProviderOpenAI:
		provider, err = NewOpenAIProvider(cfg.APIKey, cfg.BaseURL, cfg.Model)
		if err != nil {
			return nil, err
		}
	case ProviderOllama:
		provider = NewOllamaProvider(cfg.BaseURL, cfg.Model, timeout)
	default:
		return nil, errors.Newf(errors.ErrTypeConfig, "unsupported provider: %s", cfg.Provider)
	}

	return NewManager(provider, ManagerConfig{
		RetryAttempts: cfg.RetryAttempts,
		RetryDelay:    retryDelay,
		Timeout:       timeout,
	}), nil
}

// Complete requests a completion with retries and a scoped timeout
func (m *Manager) Complete(ctx context.Context, req Request) (string, error) {
	if m.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.config.Timeout)
		defer cancel()
	}

	var lastErr error

	for attempt := 0; attempt <= m.config.RetryAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return "", errors.Wrap(ctx.Err(), errors.ErrTypeGeneration, "completion canceled")
			case <-time.After(m.config.RetryDelay):
			}
		}

		response, err := m.provider.Complete(ctx, req)
		if err == nil {
			return response, nil
		}

		lastErr = err

		// Don't retry on context cancellation
		if ctx.Err() != nil {
			break
		}
	}

	return "", errors.Wrapf(lastErr, errors.ErrTypeGeneration,
		"provider failed after %d attempts", m.config.RetryAttempts+1)
}
