package stream

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meteolab/skycast/core"
	"github.com/meteolab/skycast/model"
	"github.com/meteolab/skycast/orchestrator"
	"github.com/meteolab/skycast/router"
	"github.com/meteolab/skycast/tool"
)

func weatherStubTool() tool.Tool {
	return tool.NewFunctionTool(
		"get_current_weather",
		"Get current weather",
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"location": map[string]any{"type": "string"},
			},
			"required": []string{"location"},
		},
		func(_ context.Context, args map[string]any) (any, error) {
			return map[string]any{"location": args["location"], "temperature_c": 21.5}, nil
		},
	)
}

func routeTo(modelName string) *model.MockModel {
	return model.NewMockModel("aux").
		EnqueueText(`{"model": "` + modelName + `", "confidence": 0.9, "reasoning": "test route"}`)
}

func newTestEmitter(models map[string]model.Model, aux model.Model, tools ...tool.Tool) *Emitter {
	registry := tool.NewRegistry()
	registry.Register(tools...)

	candidates := []router.Candidate{
		{Name: "weather-analyst", Strengths: "Weather data."},
		{Name: "conversational", Strengths: "Chat."},
	}
	fallbacks := map[string]string{
		"weather-analyst": "conversational",
		"conversational":  "weather-analyst",
	}

	rt := router.New(aux, candidates, fallbacks, "conversational")
	exec := orchestrator.NewExecutor(registry)
	coord := orchestrator.NewCoordinator(models, exec)

	return NewEmitter(rt, coord, exec, WithChunker(NewChunker(0)))
}

func collect(t *testing.T, events <-chan core.StreamEvent) []core.StreamEvent {
	t.Helper()

	var out []core.StreamEvent
	deadline := time.After(5 * time.Second)
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return out
			}
			out = append(out, ev)
		case <-deadline:
			t.Fatal("timed out waiting for stream to finish")
		}
	}
}

func concatContent(events []core.StreamEvent) string {
	var text string
	for _, ev := range events {
		if ev.Type == core.StreamEventContent {
			text += ev.Data.(core.ContentEventData).Delta
		}
	}
	return text
}

func doneResponse(t *testing.T, events []core.StreamEvent) core.Response {
	t.Helper()

	var dones []core.Response
	for _, ev := range events {
		if ev.Type == core.StreamEventDone {
			resp, ok := ev.Data.(core.Response)
			require.True(t, ok)
			dones = append(dones, resp)
		}
	}
	require.Len(t, dones, 1, "exactly one terminal done event")
	return dones[0]
}

func streamRequest(text string) Request {
	return Request{
		UserMessage:   text,
		Messages:      []core.Message{core.NewUserMessage(text)},
		MaxIterations: 5,
	}
}

func TestStreamEventOrdering(t *testing.T) {
	weather := model.NewMockModel("weather-analyst").
		EnqueueToolCalls(core.ToolCall{ID: "c1", Name: "get_current_weather", Arguments: `{"location": "Paris"}`}).
		EnqueueText("Sunny in Paris, 21 degrees.")
	emitter := newTestEmitter(map[string]model.Model{
		"weather-analyst": weather,
		"conversational":  model.NewMockModel("conversational"),
	}, routeTo("weather-analyst"), weatherStubTool())

	events := collect(t, emitter.Stream(context.Background(), streamRequest("Weather in Paris?")))

	require.NotEmpty(t, events)
	assert.Equal(t, core.StreamEventRouting, events[0].Type, "routing precedes everything")
	assert.Equal(t, core.StreamEventDone, events[len(events)-1].Type)

	routingIdx, toolIdx, firstContentIdx := -1, -1, -1
	for i, ev := range events {
		switch ev.Type {
		case core.StreamEventRouting:
			if routingIdx == -1 {
				routingIdx = i
			}
		case core.StreamEventTool:
			toolIdx = i
		case core.StreamEventContent:
			if firstContentIdx == -1 {
				firstContentIdx = i
			}
		}
	}
	require.NotEqual(t, -1, toolIdx, "tool event must be emitted")
	assert.Less(t, routingIdx, toolIdx)
	assert.Less(t, routingIdx, firstContentIdx)

	resp := doneResponse(t, events)
	assert.Equal(t, "Sunny in Paris, 21 degrees.", resp.Response)
	assert.Equal(t, resp.Response, concatContent(events))
	assert.Equal(t, "weather-analyst", resp.ModelUsed)
	require.Len(t, resp.ToolCalls, 1)
}

func TestStreamSyntheticChunkingForNonStreamingModel(t *testing.T) {
	weather := model.NewMockModel("weather-analyst").
		SetStreaming(false).
		EnqueueText("Cloudy with light rain later.")
	emitter := newTestEmitter(map[string]model.Model{
		"weather-analyst": weather,
		"conversational":  model.NewMockModel("conversational"),
	}, routeTo("weather-analyst"))

	events := collect(t, emitter.Stream(context.Background(), streamRequest("Weather?")))

	var contentEvents int
	for _, ev := range events {
		if ev.Type == core.StreamEventContent {
			contentEvents++
		}
	}
	assert.Greater(t, contentEvents, 1, "completed answer must be split into chunks")

	resp := doneResponse(t, events)
	assert.Equal(t, resp.Response, concatContent(events))
}

func TestStreamFallbackReRouting(t *testing.T) {
	primary := model.NewMockModel("weather-analyst").FailWith(errors.New("backend down"))
	fallback := model.NewMockModel("conversational").EnqueueText("It should stay dry.")
	emitter := newTestEmitter(map[string]model.Model{
		"weather-analyst": primary,
		"conversational":  fallback,
	}, routeTo("weather-analyst"))

	events := collect(t, emitter.Stream(context.Background(), streamRequest("Will it rain?")))

	var routings []core.RoutingEventData
	for _, ev := range events {
		if ev.Type == core.StreamEventRouting {
			routings = append(routings, ev.Data.(core.RoutingEventData))
		}
	}
	require.Len(t, routings, 2, "fallback must re-emit a routing event")
	assert.False(t, routings[0].Fallback)
	assert.Equal(t, "weather-analyst", routings[0].Model)
	assert.True(t, routings[1].Fallback)
	assert.Equal(t, "conversational", routings[1].Model)

	resp := doneResponse(t, events)
	assert.True(t, resp.FallbackUsed)
	assert.Equal(t, "It should stay dry.", resp.Response)
}

func TestStreamApologyWhenAllFail(t *testing.T) {
	primary := model.NewMockModel("weather-analyst").FailWith(errors.New("down"))
	fallback := model.NewMockModel("conversational").FailWith(errors.New("also down"))
	emitter := newTestEmitter(map[string]model.Model{
		"weather-analyst": primary,
		"conversational":  fallback,
	}, routeTo("weather-analyst"))

	events := collect(t, emitter.Stream(context.Background(), streamRequest("Weather?")))

	resp := doneResponse(t, events)
	assert.True(t, resp.FallbackUsed)
	assert.NotEmpty(t, resp.Response)
	assert.Equal(t, resp.Response, concatContent(events), "apology is still streamed as content")
}

func TestStreamModerationShortCircuit(t *testing.T) {
	emitter := newTestEmitter(map[string]model.Model{
		"weather-analyst": model.NewMockModel("weather-analyst"),
		"conversational":  model.NewMockModel("conversational"),
	}, routeTo("weather-analyst"))

	req := streamRequest("What is 25 + 37?")
	req.Verdict = &core.ModerationVerdict{
		Appropriate:     true,
		InScope:         false,
		Tone:            core.ToneNeutral,
		Blocked:         true,
		BlockingMessage: "I'm a weather assistant, ask me about the weather!",
	}

	events := collect(t, emitter.Stream(context.Background(), req))

	for _, ev := range events {
		assert.NotEqual(t, core.StreamEventRouting, ev.Type, "no routing for blocked requests")
		assert.NotEqual(t, core.StreamEventTool, ev.Type)
	}

	resp := doneResponse(t, events)
	assert.Equal(t, req.Verdict.BlockingMessage, resp.Response)
	assert.Equal(t, resp.Response, concatContent(events))
	require.NotNil(t, resp.Moderation)
	assert.True(t, resp.Moderation.Blocked)
}

func TestStreamCancellationStopsProducer(t *testing.T) {
	weather := model.NewMockModel("weather-analyst").
		EnqueueText("A long answer that would stream for a while in many chunks.")
	emitter := newTestEmitter(map[string]model.Model{
		"weather-analyst": weather,
		"conversational":  model.NewMockModel("conversational"),
	}, routeTo("weather-analyst"))

	ctx, cancel := context.WithCancel(context.Background())
	events := emitter.Stream(ctx, streamRequest("Weather?"))

	// Read one event, then walk away.
	<-events
	cancel()

	deadline := time.After(5 * time.Second)
	for {
		select {
		case _, ok := <-events:
			if !ok {
				return // channel closed, producer stopped
			}
		case <-deadline:
			t.Fatal("producer kept running after cancellation")
		}
	}
}
