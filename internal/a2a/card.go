package a2a

import "fmt"

// AgentSkill describes one action an agent can perform.
type AgentSkill struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Tags        []string `json:"tags,omitempty"`
}

// AgentCapabilities advertises optional protocol features.
type AgentCapabilities struct {
	Streaming         bool `json:"streaming"`
	PushNotifications bool `json:"pushNotifications"`
}

// AgentCard is the descriptor served at /.well-known/agent.json.
type AgentCard struct {
	Name               string            `json:"name"`
	Description        string            `json:"description"`
	URL                string            `json:"url"`
	Version            string            `json:"version"`
	Capabilities       AgentCapabilities `json:"capabilities"`
	Skills             []AgentSkill      `json:"skills"`
	DefaultInputModes  []string          `json:"defaultInputModes"`
	DefaultOutputModes []string          `json:"defaultOutputModes"`
}

// Endpoint locates a peer agent.
type Endpoint struct {
	Port int
}

// BaseURL returns the peer's HTTP base URL.
func (e Endpoint) BaseURL() string {
	return fmt.Sprintf("http://localhost:%d", e.Port)
}
