package handlers

import (
	"context"
	"encoding/base64"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/bytedance/sonic"

	"github.com/splat3api/splatsync/internal/httpserver/deps"
	"github.com/splat3api/splatsync/internal/logger"
	"github.com/splat3api/splatsync/internal/orchestrator"
)

const maxTriggerBody = 64 << 10

// pushEnvelope is a Pub/Sub push delivery.
type pushEnvelope struct {
	Message *struct {
		Data      string `json:"data"`
		MessageID string `json:"messageId"`
	} `json:"message"`
	Subscription string `json:"subscription"`
}

// CommandFromBody extracts the command text from a push envelope or a raw
// text body.
func CommandFromBody(body []byte) (string, error) {
	trimmed := strings.TrimSpace(string(body))
	if !strings.HasPrefix(trimmed, "{") {
		return trimmed, nil
	}

	var env pushEnvelope
	if err := sonic.UnmarshalString(trimmed, &env); err != nil {
		return "", err
	}
	if env.Message == nil {
		return "", errors.New("push envelope without message")
	}
	data, err := base64.StdEncoding.DecodeString(env.Message.Data)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

// Trigger runs the command synchronously: 200 once done, 429 while the same
// command is running, 500 on failure so the sender redelivers.
func Trigger(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(io.LimitReader(r.Body, maxTriggerBody))
		if err != nil {
			http.Error(w, "failed to read body", http.StatusBadRequest)
			return
		}
		command, err := CommandFromBody(body)
		if err != nil {
			d.Logger.Warn("malformed trigger body", logger.Error(err))
			http.Error(w, "malformed trigger body", http.StatusBadRequest)
			return
		}

		ctx := r.Context()
		if d.TriggerTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, d.TriggerTimeout)
			defer cancel()
		}

		err = d.Trigger.Handle(ctx, command)
		switch {
		case err == nil:
			w.WriteHeader(http.StatusOK)
			if _, err := w.Write([]byte("ok\n")); err != nil {
				d.Logger.Debug("failed to write response", logger.Error(err))
			}
		case errors.Is(err, orchestrator.ErrBusy):
			w.Header().Set("Retry-After", "60")
			http.Error(w, "command already running", http.StatusTooManyRequests)
		default:
			http.Error(w, "command failed", http.StatusInternalServerError)
		}
	}
}
