package tunnel

import (
	"fmt"
	"os"
	"path/filepath"

	yaml "gopkg.in/yaml.v3"
)

// agentConfig is the ngrok v2 agent config we write before launching the
// binary. The request header tells ngrok to skip its browser interstitial so
// the overlay loads directly.
type agentConfig struct {
	Version   string                  `yaml:"version"`
	AuthToken string                  `yaml:"authtoken,omitempty"`
	Tunnels   map[string]tunnelConfig `yaml:"tunnels"`
}

type tunnelConfig struct {
	Addr          string        `yaml:"addr"`
	Proto         string        `yaml:"proto"`
	RequestHeader headerActions `yaml:"request_header,omitempty"`
}

type headerActions struct {
	Add []string `yaml:"add,omitempty"`
}

// WriteAgentConfig renders the agent config for tunneling the given local
// address and returns the file path.
func WriteAgentConfig(dir, localAddr, authToken string) (string, error) {
	cfg := agentConfig{
		Version:   "2",
		AuthToken: authToken,
		Tunnels: map[string]tunnelConfig{
			"overlay": {
				Addr:  localAddr,
				Proto: "http",
				RequestHeader: headerActions{
					Add: []string{"ngrok-skip-browser-warning: true"},
				},
			},
		},
	}
	raw, err := yaml.Marshal(cfg)
	if err != nil {
		return "", fmt.Errorf("marshal agent config: %w", err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, "ngrok.yml")
	if err := os.WriteFile(path, raw, 0o600); err != nil {
		return "", err
	}
	return path, nil
}
