package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"classroom-quiz-service/internal/app"
	"classroom-quiz-service/internal/domain"
)

// NotificationFeed streams notifications addressed to one recipient.
type NotificationFeed interface {
	Subscribe(recipientID string) (<-chan domain.Notification, func())
}

// WSHandler lets a student take a quiz over a websocket: answers and the final
// completion travel as messages on a single connection.
type WSHandler struct {
	submissions *app.SubmissionService
	feed        NotificationFeed
	logger      *slog.Logger
	upgrader    websocket.Upgrader
}

func NewWSHandler(submissions *app.SubmissionService, feed NotificationFeed, logger *slog.Logger) *WSHandler {
	return &WSHandler{
		submissions: submissions,
		feed:        feed,
		logger:      logger,
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

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type connectedPayload struct {
	SubmissionID string `json:"submissionId"`
}

type errorPayload struct {
	Message string `json:"message"`
	Code    string `json:"code"`
}

func errorFrame(err error) outboundMessage[any] {
	_, resp := errorResponse(err)
	return outboundMessage[any]{Type: "error", Payload: errorPayload{Message: resp.Message, Code: resp.Code}}
}

// Serve upgrades the request and runs the read loop until the client leaves.
func (h *WSHandler) Serve(c *gin.Context) {
	actor := actorFrom(c)
	if !actor.IsStudent() {
		status, resp := errorResponse(domain.ErrStudentOnly)
		c.AbortWithStatusJSON(status, resp)
		return
	}
	submissionID := c.Param("id")

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("ws upgrade failed", "error", err)
		return
	}
	defer conn.Close()
	ctx := c.Request.Context()

	var notifications <-chan domain.Notification
	if h.feed != nil {
		var cancel func()
		notifications, cancel = h.feed.Subscribe(actor.ID)
		defer cancel()
	}

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	feedDone := make(chan struct{})

	// Only this goroutine writes to conn. After a failed write it keeps
	// draining send so producers never block, and closes conn to end the
	// read loop.
	go func() {
		defer close(writerDone)
		broken := false
		for msg := range send {
			if broken {
				continue
			}
			if err := conn.WriteJSON(msg); err != nil {
				h.logger.Debug("ws write failed", "submission_id", submissionID, "error", err)
				broken = true
				_ = conn.Close()
			}
		}
	}()

	go func() {
		defer close(feedDone)
		for {
			select {
			case n, ok := <-notifications:
				if !ok {
					return
				}
				select {
				case send <- outboundMessage[any]{Type: "notification", Payload: n}:
				case <-closeSignals:
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	send <- outboundMessage[any]{Type: "connected", Payload: connectedPayload{SubmissionID: submissionID}}

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		switch inbound.Type {
		case "answer":
			var payload answerRequest
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				send <- errorFrame(badBody(err))
				continue
			}
			answer, err := h.submissions.SubmitAnswer(ctx, actor, submissionID, payload.QuestionID, payload.Answer)
			if err != nil {
				send <- errorFrame(err)
				continue
			}
			send <- outboundMessage[any]{Type: "answerResult", Payload: answer}
		case "complete":
			res, err := h.submissions.CompleteQuiz(ctx, actor, submissionID)
			if err != nil {
				send <- errorFrame(err)
				continue
			}
			send <- outboundMessage[any]{Type: "completed", Payload: res}
		default:
			send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "unsupported message type", Code: "validation_error"}}
		}
	}

	close(closeSignals)
	<-feedDone
	close(send)
	<-writerDone
}
