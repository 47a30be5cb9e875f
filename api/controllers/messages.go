package controllers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/ioproxxy/mkulima-express-sub000/api/middleware"
	"github.com/ioproxxy/mkulima-express-sub000/api/responses"
	"github.com/ioproxxy/mkulima-express-sub000/api/validators"
	"github.com/ioproxxy/mkulima-express-sub000/internal/messages"
	"github.com/ioproxxy/mkulima-express-sub000/pkg/logger"
)

func MessageList(svc messageService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseUUIDParam(r, contractIDParam)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		rows, err := svc.List(middleware.SessionFromContext(r.Context()), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, messages.FromModels(rows))
	}
}

func MessageSend(svc messageService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseUUIDParam(r, contractIDParam)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body messages.SendRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		msg, err := svc.Send(r.Context(), middleware.SessionFromContext(r.Context()), id, body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, messages.FromModel(*msg))
	}
}

// MessageStream pushes a contract's new messages as server-sent events until the client
// disconnects.
func MessageStream(svc messageService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseUUIDParam(r, contractIDParam)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		watch, err := svc.Watch(r.Context(), middleware.SessionFromContext(r.Context()), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		defer watch.Close()
		stop := context.AfterFunc(r.Context(), watch.Close)
		defer stop()

		rc := http.NewResponseController(w)
		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.WriteHeader(http.StatusOK)
		if err := rc.Flush(); err != nil {
			return
		}

		for msg := range watch.Messages() {
			payload, err := json.Marshal(messages.FromModel(msg))
			if err != nil {
				if logg != nil {
					logg.Error(r.Context(), "encode stream message", err)
				}
				continue
			}
			if _, err := fmt.Fprintf(w, "id: %s\nevent: message\ndata: %s\n\n", msg.ID, payload); err != nil {
				return
			}
			if err := rc.Flush(); err != nil {
				return
			}
		}
	}
}
