package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/croswell/taskmaster-api/internal/config"
	"github.com/croswell/taskmaster-api/internal/constants"
	"github.com/croswell/taskmaster-api/internal/models"
)

var (
	ErrAINoTasksSuggested = errors.New("no tasks could be extracted from the text")
	ErrAITooManyTasks     = errors.New("too many tasks suggested")
)

// AIService talks to a local Ollama container through its OpenAI-compatible
// API and turns free-form text into task drafts. Nothing is persisted here;
// the caller decides what to create.
type AIService struct {
	client      *openai.Client
	model       string
	temperature float32
}

// SuggestedTask is a task draft extracted from natural language.
type SuggestedTask struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Priority    string     `json:"priority"`
	DueDate     *time.Time `json:"due_date"`
}

// NewAIService builds the service against cfg.OllamaURL. Ollama serves an
// OpenAI-compatible API under /v1; the API key is unused but required by the
// client.
func NewAIService(cfg *config.Config) *AIService {
	clientConfig := openai.DefaultConfig("ollama")
	clientConfig.BaseURL = strings.TrimSuffix(cfg.OllamaURL, "/") + "/v1"

	return &AIService{
		client:      openai.NewClientWithConfig(clientConfig),
		model:       cfg.LlamaModel,
		temperature: float32(cfg.AITemperature),
	}
}

// Health reports whether the model server is reachable and which models it
// currently serves.
func (s *AIService) Health(ctx context.Context) ([]string, error) {
	resp, err := s.client.ListModels(ctx)
	if err != nil {
		return nil, fmt.Errorf("model server unreachable: %w", err)
	}

	names := make([]string, 0, len(resp.Models))
	for _, m := range resp.Models {
		names = append(names, m.ID)
	}

	return names, nil
}

// SuggestTasks analyzes text and extracts task drafts.
func (s *AIService) SuggestTasks(ctx context.Context, text string) ([]SuggestedTask, error) {
	currentTime := time.Now().Format("2006-01-02 15:04:05")
	prompt := fmt.Sprintf(`You are a task extraction assistant. Extract concrete tasks from the text below.

Current time: %s

Text:
%s

Return a JSON array of the extracted tasks in this shape:
[
  {
    "title": "short task title",
    "description": "task details",
    "priority": "low, medium, high or urgent",
    "due_date": "deadline as ISO8601, e.g. 2025-10-28T23:59:59Z, or null when none is mentioned"
  }
]

Rules:
- Return an empty array [] when the text contains no tasks
- Convert relative deadlines ("tomorrow", "next week") into concrete timestamps
- due_date must be an ISO8601 string or null
- Return only the JSON, no surrounding prose`, currentTime, text)

	resp, err := s.client.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{
			Model: s.model,
			Messages: []openai.ChatCompletionMessage{
				{
					Role:    openai.ChatMessageRoleUser,
					Content: prompt,
				},
			},
			Temperature: s.temperature,
		},
	)
	if err != nil {
		return nil, fmt.Errorf("model request failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("empty response from model")
	}

	return parseSuggestedTasks(resp.Choices[0].Message.Content, time.Now())
}

// ChatReply is the structured outcome of a chat turn. Data carries the
// action payload (for example a task draft) for the client to confirm;
// nothing is executed server-side.
type ChatReply struct {
	Action             string         `json:"action"`
	Message            string         `json:"message"`
	Data               map[string]any `json:"data,omitempty"`
	ConfirmationNeeded bool           `json:"confirmation_needed"`
}

// Chat sends a free-form message to the model and returns its structured
// reply. The model classifies the intent; mutations come back as proposals
// with ConfirmationNeeded set so the client stays in charge.
func (s *AIService) Chat(ctx context.Context, message string) (*ChatReply, error) {
	currentTime := time.Now().Format("2006-01-02 15:04:05")
	prompt := fmt.Sprintf(`You are a task management assistant. Interpret the user's message and respond with a single JSON object:
{
  "action": "one of: create_task, edit_task, move_task, delete_task, query_tasks, status_report, general",
  "message": "a short natural-language reply to the user",
  "data": { "action-specific payload, e.g. a task draft with title/description/priority/due_date" },
  "confirmation_needed": true when the action would modify tasks and the user should confirm first
}

Current time: %s

User message:
%s

Rules:
- Use action "general" for anything that is not a task operation
- Never claim an operation was performed; propose it with confirmation_needed = true
- Convert relative deadlines into concrete ISO8601 timestamps
- Return only the JSON, no surrounding prose`, currentTime, message)

	resp, err := s.client.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{
			Model: s.model,
			Messages: []openai.ChatCompletionMessage{
				{
					Role:    openai.ChatMessageRoleUser,
					Content: prompt,
				},
			},
			Temperature: s.temperature,
		},
	)
	if err != nil {
		return nil, fmt.Errorf("model request failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("empty response from model")
	}

	return parseChatReply(resp.Choices[0].Message.Content)
}

// parseChatReply normalizes the model's chat output. Unknown actions fall
// back to "general" so clients never see an unexpected verb.
func parseChatReply(content string) (*ChatReply, error) {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")

	var reply ChatReply
	if err := json.Unmarshal([]byte(strings.TrimSpace(content)), &reply); err != nil {
		return nil, fmt.Errorf("failed to parse model response: %w", err)
	}

	switch reply.Action {
	case "create_task", "edit_task", "move_task", "delete_task", "query_tasks", "status_report", "general":
	default:
		reply.Action = "general"
	}

	if strings.TrimSpace(reply.Message) == "" {
		return nil, fmt.Errorf("model response carries no message")
	}

	return &reply, nil
}

// parseSuggestedTasks validates the model output: titles must be non-empty,
// unknown priorities fall back to medium, and due dates more than a day in
// the past are dropped.
func parseSuggestedTasks(content string, now time.Time) ([]SuggestedTask, error) {
	// Local models occasionally wrap the JSON in a code fence.
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")

	var tasks []SuggestedTask
	if err := json.Unmarshal([]byte(strings.TrimSpace(content)), &tasks); err != nil {
		return nil, fmt.Errorf("failed to parse model response: %w", err)
	}

	if len(tasks) > constants.MaxSuggestedTasks {
		return nil, fmt.Errorf("%w (max %d)", ErrAITooManyTasks, constants.MaxSuggestedTasks)
	}

	cutoff := now.Add(-24 * time.Hour)
	valid := make([]SuggestedTask, 0, len(tasks))
	for _, task := range tasks {
		if strings.TrimSpace(task.Title) == "" {
			continue
		}

		if !models.TaskPriority(task.Priority).Valid() {
			task.Priority = string(models.TaskPriorityMedium)
		}

		if task.DueDate != nil && task.DueDate.Before(cutoff) {
			task.DueDate = nil
		}

		valid = append(valid, task)
	}

	if len(valid) == 0 {
		return nil, ErrAINoTasksSuggested
	}

	return valid, nil
}
