package llm

import (
	"embed"
	"fmt"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed config/*.yaml
var configFiles embed.FS

// ModelSettings describes one model's generation limits.
type ModelSettings struct {
	ID              string `yaml:"id"`
	MaxOutputTokens int    `yaml:"max_output_tokens"`
	ContextWindow   int    `yaml:"context_window"`
}

// ProviderSettings groups the models of one provider.
type ProviderSettings struct {
	Provider string          `yaml:"provider"`
	Default  string          `yaml:"default"`
	Models   []ModelSettings `yaml:"models"`
}

// Registry holds per-provider model settings loaded from embedded YAML.
type Registry struct {
	providers map[string]*ProviderSettings
	mu        sync.RWMutex
}

// NewRegistry loads the embedded provider files.
func NewRegistry() (*Registry, error) {
	r := &Registry{providers: make(map[string]*ProviderSettings)}

	for _, provider := range []string{"openai", "anthropic"} {
		if err := r.loadProviderFile(provider); err != nil {
			return nil, fmt.Errorf("load %s models: %w", provider, err)
		}
	}
	return r, nil
}

func (r *Registry) loadProviderFile(provider string) error {
	filename := fmt.Sprintf("config/%s.yaml", provider)
	data, err := configFiles.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("read %s: %w", filename, err)
	}

	var settings ProviderSettings
	if err := yaml.Unmarshal(data, &settings); err != nil {
		return fmt.Errorf("unmarshal %s: %w", filename, err)
	}

	r.mu.Lock()
	r.providers[provider] = &settings
	r.mu.Unlock()
	return nil
}

// ModelSettings returns the settings of one model, falling back to the
// provider default when the id is unknown.
func (r *Registry) ModelSettings(provider, model string) (*ModelSettings, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	settings, ok := r.providers[provider]
	if !ok {
		return nil, fmt.Errorf("unknown provider: %s", provider)
	}

	for i := range settings.Models {
		if settings.Models[i].ID == model {
			return &settings.Models[i], nil
		}
	}
	for i := range settings.Models {
		if settings.Models[i].ID == settings.Default {
			return &settings.Models[i], nil
		}
	}
	return nil, fmt.Errorf("unknown model %s for provider %s", model, provider)
}
