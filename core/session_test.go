package core

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionAppendOrder(t *testing.T) {
	sess := NewSession("s1")

	for i := 0; i < 10; i++ {
		sess.AddMessage(NewUserMessage(fmt.Sprintf("msg-%d", i)))
	}

	msgs := sess.GetMessages()
	require.Len(t, msgs, 10)
	for i, msg := range msgs {
		assert.Equal(t, fmt.Sprintf("msg-%d", i), msg.Content)
	}
	assert.Equal(t, 10, sess.MessageCount())
}

func TestSessionGetMessagesDefensiveCopy(t *testing.T) {
	sess := NewSession("s1")
	sess.AddMessage(NewUserMessage("original"))

	msgs := sess.GetMessages()
	msgs[0].Content = "mutated"

	assert.Equal(t, "original", sess.GetMessages()[0].Content)
}

func TestSessionLastModel(t *testing.T) {
	sess := NewSession("s1")
	assert.Empty(t, sess.GetLastModel())

	sess.SetLastModel("weather-analyst")
	assert.Equal(t, "weather-analyst", sess.GetLastModel())
}

func TestSessionRecentHistory(t *testing.T) {
	sess := NewSession("s1")
	sess.AddMessage(NewSystemMessage("system prompt"))
	sess.AddMessage(NewUserMessage("u1"))
	sess.AddMessage(NewToolCallMessage([]ToolCall{{ID: "c1", Name: "get_current_weather"}}))
	sess.AddMessage(NewToolResultMessage("c1", `{"temperature_c":20}`))
	sess.AddMessage(NewAssistantMessage("a1"))
	sess.AddMessage(NewUserMessage("u2"))
	sess.AddMessage(NewAssistantMessage("a2"))

	history := sess.RecentHistory(3)
	require.Len(t, history, 3)
	assert.Equal(t, "a1", history[0].Content)
	assert.Equal(t, "u2", history[1].Content)
	assert.Equal(t, "a2", history[2].Content)
}

func TestSessionClone(t *testing.T) {
	sess := NewSession("s1")
	sess.AddMessage(NewUserMessage("hello"))
	sess.SetLastModel("conversational")

	clone := sess.Clone()
	clone.AddMessage(NewUserMessage("only in clone"))

	assert.Equal(t, 1, sess.MessageCount())
	assert.Equal(t, 2, clone.MessageCount())
	assert.Equal(t, "conversational", clone.LastModel)
}

func TestMessageConstructors(t *testing.T) {
	user := NewUserMessage("hi")
	assert.Equal(t, RoleUser, user.Role)
	assert.False(t, user.Timestamp.IsZero())

	calls := []ToolCall{{ID: "c1", Name: "get_forecast", Arguments: `{"location":"Paris"}`}}
	turn := NewToolCallMessage(calls)
	assert.Equal(t, RoleAssistant, turn.Role)
	assert.Empty(t, turn.Content)
	assert.True(t, turn.HasToolCalls())

	result := NewToolResultMessage("c1", `{"ok":true}`)
	assert.Equal(t, RoleTool, result.Role)
	assert.Equal(t, "c1", result.ToolCallID)
}
