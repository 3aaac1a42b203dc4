package logging

import (
	"encoding/json"
	"os"
	"strings"
	"time"
)

// Selective toggles for the chatty trace categories. Message and LLM traces
// default on; verbose payload dumps default off.
var (
	logVerbose  = envBool("A2A_LOG_VERBOSE", false)
	logLLM      = envBool("A2A_LOG_LLM", true)
	logMessages = envBool("A2A_LOG_MESSAGES", true)
)

func envBool(key string, def bool) bool {
	v := strings.ToLower(os.Getenv(key))
	switch v {
	case "":
		return def
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

// Truncate shortens text for display. The cut lands on a byte boundary,
// so any rune split by it is dropped to keep the output valid UTF-8.
func Truncate(text string, max int) string {
	if len(text) <= max {
		return text
	}
	return strings.ToValidUTF8(text[:max], "") + "…"
}

func summarize(payload string) string {
	max := 500
	if logVerbose {
		max = 2000
	}
	var v interface{}
	if err := json.Unmarshal([]byte(payload), &v); err == nil {
		if pretty, err := json.Marshal(v); err == nil {
			return Truncate(string(pretty), max)
		}
	}
	return Truncate(payload, max)
}

// AgentMessage traces one side of an inter-agent exchange. Direction is
// "SEND" or "RECEIVE"; skill names the action being invoked.
func AgentMessage(direction, from, to, skill, payload string, elapsed time.Duration) {
	if !logMessages {
		return
	}
	l := Global().WithComponent(from).
		WithField("skill", skill).
		WithField("peer", to)
	if elapsed > 0 {
		l = l.WithField("elapsed_ms", elapsed.Milliseconds())
	}
	arrow := "→"
	if direction == "RECEIVE" {
		arrow = "←"
	}
	l.Info("%s %s %s: %s", direction, arrow, to, summarize(payload))
}

// LLMCall traces a model invocation made by an agent.
func LLMCall(agent, model, prompt, response string, elapsed time.Duration, err error) {
	if !logLLM {
		return
	}
	max := 800
	if logVerbose {
		max = 3000
	}
	l := Global().WithComponent(agent).
		WithField("model", model).
		WithField("elapsed_ms", elapsed.Milliseconds())
	if err != nil {
		l.Error("LLM call failed: %v", err)
		return
	}
	l.Info("LLM prompt: %s", Truncate(prompt, max))
	l.Info("LLM response: %s", Truncate(response, max))
}

// PipelineStep traces one stage of a question pipeline.
func PipelineStep(name string, step, total int, details string) {
	l := Global().WithComponent("Pipeline")
	if details != "" {
		l.Info("STEP %d/%d: %s (%s)", step, total, name, details)
	} else {
		l.Info("STEP %d/%d: %s", step, total, name)
	}
}
