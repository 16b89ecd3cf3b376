package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sashabaranov/go-openai"
)

type Client struct {
	client *openai.Client
	model  string
}

func New(apiKey, baseURL, model string) *Client {
	config := openai.DefaultConfig(apiKey)
	config.BaseURL = baseURL

	return &Client{
		client: openai.NewClientWithConfig(config),
		model:  model,
	}
}

type Intent struct {
	Action         string            `json:"action"`
	Parameters     map[string]string `json:"parameters"`
	Confidence     float64           `json:"confidence"`
	NeedMoreInfo   bool              `json:"need_more_info"`
	FollowUpPrompt string            `json:"follow_up_prompt"`
	AIMessage      string            `json:"ai_message"`
	RawResponse    string            `json:"-"`
}

const systemPromptTemplate = `You are the assistant of Habitus, a Telegram bot that asks users recurring questions and tracks their answers. Parse the user's natural-language input into a structured intent.

Current time: %s

Available actions:
- create_tracking: start tracking a new question
- list_trackings: list the user's trackings
- pause_tracking: pause a tracking
- resume_tracking: resume a paused tracking
- archive_tracking: archive a tracking
- delete_tracking: delete a tracking
- answer_reminder: answer a pending reminder
- list_reminders: list pending reminders
- set_timezone: change the user's timezone
- unknown: cannot recognize

Depending on the action, parameters may contain:
- question: the question text to track (create_tracking)
- times: comma-separated reminder times in HH:MM, at most 5 (create_tracking)
- recurrence: one of "daily", "weekdays", "once" (create_tracking)
- weekdays: comma-separated weekday names, e.g. "Mon,Thu" (when recurrence is "weekdays")
- date: the single date in YYYY-MM-DD (when recurrence is "once")
- id: the tracking or reminder number (pause, resume, archive, delete, answer)
- value: "completed" or "dismissed" (answer_reminder)
- timezone: an IANA timezone name, e.g. "America/New_York" (set_timezone)

Important rules:
1. When the user uses relative dates ("tomorrow", "next Monday"), resolve them against the current time and output YYYY-MM-DD.
2. Normalize times to 24-hour HH:MM. "every morning at 9" means times=09:00 with recurrence=daily.
3. When the request lacks the information needed to execute the action, set need_more_info = true and put the question to ask in follow_up_prompt. Examples:
   - "remind me to stretch" without any time: ask what times of day to remind at
   - "pause that tracking" without an id: ask which tracking number
4. ai_message is a short friendly reply shown to the user; fill it for casual chat (action = unknown).`

func getSystemPrompt() string {
	now := time.Now()
	return fmt.Sprintf(systemPromptTemplate, now.Format("2006-01-02 15:04 (Monday)"))
}

// JSON Schema for structured output
var intentSchema = json.RawMessage(`{
	"type": "object",
	"properties": {
		"action": {
			"type": "string",
			"enum": ["create_tracking", "list_trackings", "pause_tracking", "resume_tracking", "archive_tracking", "delete_tracking", "answer_reminder", "list_reminders", "set_timezone", "unknown"],
			"description": "The action to perform"
		},
		"parameters": {
			"type": "object",
			"additionalProperties": {
				"type": "string"
			},
			"description": "Parameters for the action"
		},
		"confidence": {
			"type": "number",
			"minimum": 0,
			"maximum": 1,
			"description": "Confidence score between 0 and 1"
		},
		"need_more_info": {
			"type": "boolean",
			"description": "Whether more information is needed from user to complete the action"
		},
		"follow_up_prompt": {
			"type": "string",
			"description": "The follow-up question to ask user when need_more_info is true"
		},
		"ai_message": {
			"type": "string",
			"description": "Friendly message to show user (for casual chat or confirmations)"
		}
	},
	"required": ["action", "confidence", "need_more_info"],
	"additionalProperties": false
}`)

func (c *Client) ParseIntent(ctx context.Context, userMessage string) (*Intent, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: getSystemPrompt(),
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: userMessage,
			},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
				Name:   "intent",
				Schema: intentSchema,
				Strict: true,
			},
		},
		Temperature: 0.1,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to call AI API: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no response from AI")
	}

	content := resp.Choices[0].Message.Content
	intent := &Intent{RawResponse: content}

	if err := json.Unmarshal([]byte(content), intent); err != nil {
		return nil, fmt.Errorf("failed to parse AI response: %w", err)
	}

	return intent, nil
}
