package http

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/gorilla/websocket"

	"hastyquiz-service/internal/domain"
	"hastyquiz-service/internal/engine"
	"hastyquiz-service/internal/generate"
	"hastyquiz-service/internal/history"
	"hastyquiz-service/internal/infra/memory"
	"hastyquiz-service/internal/ingest"
	"hastyquiz-service/internal/prefs"
	"hastyquiz-service/internal/storage"
)

// WSHandler exposes the session engine over a websocket: inbound commands
// mutate the session, outbound messages stream state snapshots.
type WSHandler struct {
	engine   *engine.Engine
	prefs    *prefs.Store
	history  *history.Store
	library  *memory.QuizLibrary
	store    storage.Store
	upgrader websocket.Upgrader
}

func NewWSHandler(eng *engine.Engine, prefsStore *prefs.Store, historyStore *history.Store, library *memory.QuizLibrary, store storage.Store) *WSHandler {
	return &WSHandler{
		engine:  eng,
		prefs:   prefsStore,
		history: historyStore,
		library: library,
		store:   store,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type answerPayload struct {
	OptionID string `json:"optionId"`
}

type promptPayload struct {
	Prompt string `json:"prompt"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// ServeWS upgrades the request and wires the socket into the session engine.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	updates, cancel := h.engine.Subscribe()
	defer cancel()

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	updatesDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
		}
	}()

	go func() {
		defer close(updatesDone)
		for {
			select {
			case update, ok := <-updates:
				if !ok {
					return
				}
				select {
				case send <- outboundMessage[any]{Type: "state", Payload: update}:
				case <-closeSignals:
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		h.dispatch(r, send, inbound)
	}

	close(closeSignals)
	<-updatesDone
	close(send)
	<-writerDone
}

func (h *WSHandler) dispatch(r *http.Request, send chan outboundMessage[any], inbound inboundMessage) {
	ctx := r.Context()
	switch inbound.Type {
	case "load":
		quiz, err := ingest.Parse(string(inbound.Payload))
		if err != nil {
			send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: err.Error()}}
			return
		}
		h.engine.LoadQuiz(ctx, quiz)
	case "start":
		if err := h.engine.Start(ctx); err != nil {
			send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: err.Error()}}
		}
	case "answer":
		var payload answerPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "invalid answer payload"}}
			return
		}
		h.engine.Answer(ctx, payload.OptionID)
	case "next":
		h.engine.NextQuestion(ctx)
	case "previous":
		h.engine.PreviousQuestion(ctx)
	case "reset":
		if err := h.engine.Reset(ctx); err != nil {
			send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: err.Error()}}
		}
	case "restart":
		if err := h.engine.Restart(ctx); err != nil {
			send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: err.Error()}}
		}
	case "updatePreferences":
		var patch prefs.Patch
		if err := json.Unmarshal(inbound.Payload, &patch); err != nil {
			send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "invalid preferences payload"}}
			return
		}
		updated := h.prefs.Update(ctx, patch)
		send <- outboundMessage[any]{Type: "preferences", Payload: updated}
	case "resetPreferences":
		send <- outboundMessage[any]{Type: "preferences", Payload: h.prefs.Reset(ctx)}
	case "history":
		send <- outboundMessage[any]{Type: "history", Payload: h.history.All()}
	case "saveQuiz":
		quiz, err := ingest.Parse(string(inbound.Payload))
		if err != nil {
			send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: err.Error()}}
			return
		}
		if err := h.library.SaveQuiz(ctx, quiz); err != nil {
			send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: err.Error()}}
			return
		}
		send <- outboundMessage[any]{Type: "quizSaved", Payload: quiz.ID}
	case "savedQuizzes":
		quizzes, err := h.library.ListQuizzes(ctx)
		if err != nil {
			send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: err.Error()}}
			return
		}
		send <- outboundMessage[any]{Type: "savedQuizzes", Payload: quizzes}
	case "loadSaved":
		var payload struct {
			QuizID string `json:"quizId"`
		}
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "invalid quiz id payload"}}
			return
		}
		quiz, err := h.library.GetQuiz(ctx, payload.QuizID)
		if err != nil {
			send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: err.Error()}}
			return
		}
		h.engine.LoadQuiz(ctx, quiz)
	case "generatePrompt":
		var settings generate.Settings
		if err := json.Unmarshal(inbound.Payload, &settings); err != nil {
			send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "invalid generator payload"}}
			return
		}
		generate.SaveLastConfig(ctx, h.store, lastConfig(settings))
		send <- outboundMessage[any]{Type: "prompt", Payload: promptPayload{Prompt: generate.BuildPrompt(settings)}}
	case "generatorConfig":
		send <- outboundMessage[any]{Type: "generatorConfig", Payload: generate.LoadLastConfig(ctx, h.store)}
	case "models":
		send <- outboundMessage[any]{Type: "models", Payload: generate.AvailableModels()}
	default:
		send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "unsupported message type"}}
	}
}

func lastConfig(s generate.Settings) domain.GeneratorConfig {
	return domain.GeneratorConfig{
		QuestionCount: s.QuestionCount,
		OptionCount:   s.OptionCount,
		Difficulty:    s.Difficulty,
	}
}
