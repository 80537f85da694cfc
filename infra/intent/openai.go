package intent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/kilianp07/chargeflex/core/logger"
	"github.com/kilianp07/chargeflex/core/model"
)

// ErrMalformedResponse is returned when the model output is not the expected JSON object.
var ErrMalformedResponse = errors.New("malformed extraction response")

const systemPrompt = `You classify electric vehicle charging requests. Reply with one JSON object:
{"priority": "high"|"medium"|"low", "leave_by": "HH:MM"|null, "min_soc": integer|null, "start_soc": integer|null, "battery_empty": boolean}

priority: high for urgency (panic, urgent, emergency, ASAP, meetings, appointments, flights, running late);
medium for a specific future time without urgency; low for flexible requests (no rush, all day, overnight, whenever).
leave_by: 24-hour time. "3 PM" is "15:00", noon "12:00", evening "18:00", morning "08:00", midnight "00:00". null when absent.
min_soc: the requested minimum charge in percent. "full charge" is 100. null when absent.
start_soc: the current charge in percent when stated. null when absent.
battery_empty: true when the driver says the battery is dead or empty.`

// OpenAIConfig configures the OpenAI-compatible extractor.
type OpenAIConfig struct {
	// APIKey defaults to the OPENAI_API_KEY environment variable.
	APIKey string `json:"api_key"`
	// BaseURL targets a compatible server; empty uses api.openai.com.
	BaseURL     string  `json:"base_url"`
	Model       string  `json:"model"`
	Temperature float32 `json:"temperature"`
}

// SetDefaults fills the model and API key.
func (c *OpenAIConfig) SetDefaults() {
	if c.APIKey == "" {
		c.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if c.Model == "" {
		c.Model = openai.GPT4oMini
	}
}

// OpenAI extracts intent signals through a chat completion in JSON mode.
type OpenAI struct {
	client      *openai.Client
	model       string
	temperature float32
	log         logger.Logger
}

// NewOpenAI returns an extractor using cfg completed with defaults.
func NewOpenAI(cfg OpenAIConfig, log logger.Logger) (*OpenAI, error) {
	cfg.SetDefaults()
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai: api key not configured")
	}
	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")
	}
	return &OpenAI{
		client:      openai.NewClientWithConfig(oc),
		model:       cfg.Model,
		temperature: cfg.Temperature,
		log:         logger.OrNop(log),
	}, nil
}

type extraction struct {
	Priority     string  `json:"priority"`
	LeaveBy      *string `json:"leave_by"`
	MinSoC       *int    `json:"min_soc"`
	StartSoC     *int    `json:"start_soc"`
	BatteryEmpty bool    `json:"battery_empty"`
}

// Extract implements intent.Extractor.
func (o *OpenAI) Extract(ctx context.Context, text string, startSoCHint *int) (model.IntentSignals, error) {
	user := fmt.Sprintf("User says: %q", text)
	if startSoCHint != nil {
		user = fmt.Sprintf("User is at %d%% SoC. %s", *startSoCHint, user)
	}
	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       o.model,
		Temperature: o.temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject},
	})
	if err != nil {
		return model.IntentSignals{}, fmt.Errorf("openai chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return model.IntentSignals{}, fmt.Errorf("%w: no choices", ErrMalformedResponse)
	}
	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	o.log.Debugw("extraction response", map[string]any{"model": o.model, "content": content})

	var ex extraction
	if err := json.Unmarshal([]byte(content), &ex); err != nil {
		return model.IntentSignals{}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return o.toSignals(text, startSoCHint, ex), nil
}

func (o *OpenAI) toSignals(text string, hint *int, ex extraction) model.IntentSignals {
	sig := model.UnknownSignals(text)
	sig.PriorityHint = strings.ToLower(strings.TrimSpace(ex.Priority))
	sig.MinSoC = ex.MinSoC
	sig.StartSoC = ex.StartSoC
	sig.Exhausted = ex.BatteryEmpty
	if sig.StartSoC == nil && !sig.Exhausted && hint != nil {
		sig.StartSoC = model.IntPtr(*hint)
	}
	if ex.LeaveBy != nil {
		// an unusable time is dropped rather than forcing the fallback plan
		if _, err := model.ParseTimeOfDay(*ex.LeaveBy); err == nil {
			sig.LeaveBy = *ex.LeaveBy
		} else {
			o.log.Warnf("dropping leave_by %q: %v", *ex.LeaveBy, err)
		}
	}
	return sig
}
