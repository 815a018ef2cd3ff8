package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/greencoop/weather-etl/internal/benchmark"
)

// Event is the invocation payload. An empty target date selects yesterday.
type Event struct {
	TargetDate string `json:"target_date"`
}

// Response mirrors an API Gateway proxy response.
type Response struct {
	StatusCode int    `json:"statusCode"`
	Body       string `json:"body"`
}

type successBody struct {
	Message string `json:"message"`
	*benchmark.Summary
}

// Handler runs one benchmark per invocation.
type Handler struct {
	runner *benchmark.Runner
	logger *slog.Logger
}

func (h *Handler) Handle(ctx context.Context, ev Event) (Response, error) {
	h.logger.Info("benchmark invoked", "target_date", ev.TargetDate)

	day, err := benchmark.TargetDay(ev.TargetDate)
	if err != nil {
		return h.fail(err), nil
	}

	summary, err := h.runner.Run(ctx, day)
	switch {
	case errors.Is(err, benchmark.ErrNoStations):
		return respond(http.StatusNoContent, map[string]string{"message": err.Error()}), nil
	case err != nil:
		return h.fail(err), nil
	}
	return respond(http.StatusOK, successBody{Message: "benchmark complete", Summary: summary}), nil
}

func (h *Handler) fail(err error) Response {
	h.logger.Error("benchmark failed", "error", err)
	return respond(http.StatusInternalServerError, map[string]string{"error": err.Error()})
}

func respond(status int, v any) Response {
	body, err := json.Marshal(v)
	if err != nil {
		return Response{StatusCode: http.StatusInternalServerError, Body: `{"error":"encode response"}`}
	}
	return Response{StatusCode: status, Body: string(body)}
}
