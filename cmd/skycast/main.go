// Command skycast runs the weather chat server: two routable model backends,
// the Open-Meteo weather toolkit, moderation, sessions and the HTTP surface.
package main

import (
	"os"

	anthropicsdk "github.com/anthropics/anthropic-sdk-go"
	openaisdk "github.com/openai/openai-go"
	goredis "github.com/redis/go-redis/v9"

	"github.com/meteolab/skycast"
	"github.com/meteolab/skycast/analytics"
	"github.com/meteolab/skycast/config"
	"github.com/meteolab/skycast/logging"
	"github.com/meteolab/skycast/model"
	"github.com/meteolab/skycast/model/anthropic"
	"github.com/meteolab/skycast/model/openai"
	"github.com/meteolab/skycast/moderation"
	"github.com/meteolab/skycast/router"
	"github.com/meteolab/skycast/server"
	sessionredis "github.com/meteolab/skycast/session/redis"
	"github.com/meteolab/skycast/tool/weather"
)

const (
	weatherModelName        = "weather-analyst"
	conversationalModelName = "conversational"
)

func main() {
	cfg := config.Load()
	logger := logging.NewSlogLogger(logging.ParseLevel(cfg.LogLevel), cfg.LogFormat)

	openaiClient := openaisdk.NewClient()

	weatherModel := openai.NewModelFromClient(&openaiClient, func(o *openai.Options) {
		o.Model = cfg.OpenAIModel
		o.DisplayName = "Weather Analyst (" + cfg.OpenAIModel + ")"
	})
	conversationalModel := anthropic.NewModel(func(o *anthropic.Options) {
		o.Model = anthropicsdk.Model(cfg.AnthropicModel)
		o.DisplayName = "Conversational (" + cfg.AnthropicModel + ")"
	})
	routerModel := openai.NewModelFromClient(&openaiClient, func(o *openai.Options) {
		o.Model = cfg.RouterModel
		o.Temperature = 0.0
	})

	var opts []func(o *skycast.Options)

	if cfg.RedisAddr != "" {
		client := goredis.NewClient(&goredis.Options{Addr: cfg.RedisAddr})
		store := sessionredis.NewStore(client, func(o *sessionredis.Options) {
			o.TTL = cfg.SessionTTL
		})
		opts = append(opts, func(o *skycast.Options) { o.SessionStore = store })
		logger.Info("main.sessions", "store", "redis", "addr", cfg.RedisAddr)
	} else {
		logger.Info("main.sessions", "store", "memory")
	}

	engine, err := skycast.New(append(opts, func(o *skycast.Options) {
		o.Models = map[string]model.Model{
			weatherModelName:        weatherModel,
			conversationalModelName: conversationalModel,
		}
		o.Candidates = []router.Candidate{
			{
				Name:         weatherModelName,
				Strengths:    "Precise weather data analysis, forecasts and tool usage.",
				RoutingHints: "questions mentioning weather, rain, temperature, forecasts or specific locations",
			},
			{
				Name:         conversationalModelName,
				Strengths:    "Natural conversation, greetings and general chat.",
				RoutingHints: "greetings, small talk and follow-up chit-chat",
			},
		}
		o.DefaultModel = conversationalModelName
		o.RouterModel = routerModel
		o.Classifier = moderation.NewOpenAIClassifier(&openaiClient)
		o.Tools = weather.Tools(weather.NewClient())
		o.Analytics = analytics.NewLogSink(logger)
		o.MaxIterations = cfg.MaxIterations
		o.ChunkDelay = cfg.ChunkDelay
		o.Logger = logger
	})...)
	if err != nil {
		logger.Error("main.engine_init_failed", "error", err.Error())
		os.Exit(1)
	}

	srv := server.New(engine, server.WithLogger(logger))
	if err := srv.ListenAndServe(cfg.Addr); err != nil {
		logger.Error("main.server_failed", "error", err.Error())
		os.Exit(1)
	}
}
