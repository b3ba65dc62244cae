package services

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/croswell/taskmaster-api/internal/constants"
)

func TestParseSuggestedTasks(t *testing.T) {
	now := time.Date(2026, 8, 23, 12, 0, 0, 0, time.UTC)

	content := `[
		{"title": "Buy groceries", "description": "milk and eggs", "priority": "low", "due_date": null},
		{"title": "File taxes", "description": "", "priority": "urgent", "due_date": "2026-08-30T23:59:59Z"}
	]`

	tasks, err := parseSuggestedTasks(content, now)
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	require.Equal(t, "Buy groceries", tasks[0].Title)
	require.Equal(t, "low", tasks[0].Priority)
	require.Nil(t, tasks[0].DueDate)
	require.Equal(t, "urgent", tasks[1].Priority)
	require.NotNil(t, tasks[1].DueDate)
}

func TestParseSuggestedTasks_StripsCodeFence(t *testing.T) {
	content := "```json\n[{\"title\": \"Fenced\", \"priority\": \"high\"}]\n```"

	tasks, err := parseSuggestedTasks(content, time.Now())
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	require.Equal(t, "Fenced", tasks[0].Title)
}

func TestParseSuggestedTasks_DropsInvalidEntries(t *testing.T) {
	now := time.Date(2026, 8, 23, 12, 0, 0, 0, time.UTC)

	content := `[
		{"title": "  ", "priority": "high"},
		{"title": "Unknown priority", "priority": "someday"},
		{"title": "Stale deadline", "priority": "high", "due_date": "2026-08-20T09:00:00Z"}
	]`

	tasks, err := parseSuggestedTasks(content, now)
	require.NoError(t, err)
	require.Len(t, tasks, 2)

	// Unrecognized priority falls back to medium.
	require.Equal(t, "Unknown priority", tasks[0].Title)
	require.Equal(t, "medium", tasks[0].Priority)

	// Deadlines more than a day in the past are dropped.
	require.Equal(t, "Stale deadline", tasks[1].Title)
	require.Nil(t, tasks[1].DueDate)
}

func TestParseSuggestedTasks_EmptyResults(t *testing.T) {
	_, err := parseSuggestedTasks("[]", time.Now())
	require.ErrorIs(t, err, ErrAINoTasksSuggested)

	_, err = parseSuggestedTasks(`[{"title": ""}, {"title": "   "}]`, time.Now())
	require.ErrorIs(t, err, ErrAINoTasksSuggested)
}

func TestParseSuggestedTasks_TooMany(t *testing.T) {
	content := "["
	for i := 0; i <= constants.MaxSuggestedTasks; i++ {
		if i > 0 {
			content += ","
		}
		content += fmt.Sprintf(`{"title": "task %d"}`, i)
	}
	content += "]"

	_, err := parseSuggestedTasks(content, time.Now())
	require.ErrorIs(t, err, ErrAITooManyTasks)
}

func TestParseSuggestedTasks_NotJSON(t *testing.T) {
	_, err := parseSuggestedTasks("Sorry, I could not find any tasks.", time.Now())
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrAINoTasksSuggested)
}

func TestParseChatReply(t *testing.T) {
	content := `{
		"action": "create_task",
		"message": "I can create that task for you.",
		"data": {"title": "Fix login bug", "priority": "high"},
		"confirmation_needed": true
	}`

	reply, err := parseChatReply(content)
	require.NoError(t, err)
	require.Equal(t, "create_task", reply.Action)
	require.Equal(t, "I can create that task for you.", reply.Message)
	require.True(t, reply.ConfirmationNeeded)
	require.Equal(t, "Fix login bug", reply.Data["title"])
}

func TestParseChatReply_StripsCodeFence(t *testing.T) {
	content := "```json\n{\"action\": \"general\", \"message\": \"Hello!\"}\n```"

	reply, err := parseChatReply(content)
	require.NoError(t, err)
	require.Equal(t, "general", reply.Action)
	require.Equal(t, "Hello!", reply.Message)
	require.False(t, reply.ConfirmationNeeded)
}

func TestParseChatReply_UnknownActionFallsBack(t *testing.T) {
	reply, err := parseChatReply(`{"action": "launch_rocket", "message": "Sure."}`)
	require.NoError(t, err)
	require.Equal(t, "general", reply.Action)
}

func TestParseChatReply_Invalid(t *testing.T) {
	_, err := parseChatReply("not json at all")
	require.Error(t, err)

	// A structurally valid reply without a message is useless to the client.
	_, err = parseChatReply(`{"action": "general", "message": "  "}`)
	require.Error(t, err)
}
