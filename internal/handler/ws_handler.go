package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/testlane/testlane-backend/internal/config"
	"github.com/testlane/testlane-backend/internal/middleware"
	"github.com/testlane/testlane-backend/internal/model"
	"github.com/testlane/testlane-backend/internal/proctor"
	"github.com/testlane/testlane-backend/internal/service"
	ws "github.com/testlane/testlane-backend/internal/websocket"
	"github.com/testlane/testlane-backend/internal/worker"
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
// allowedOrigins comes from config.Config.AllowedOrigins.
// An empty slice permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// WSHandler handles the live attempt session stream: server time sync,
// focus-loss reporting and the warning-threshold force submit.
type WSHandler struct {
	rdb            *redis.Client
	testService    *service.TestService
	attemptService *service.AttemptService
	log            zerolog.Logger
	upgrader       websocket.Upgrader
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(rdb *redis.Client, testService *service.TestService, attemptService *service.AttemptService, log zerolog.Logger, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		rdb:            rdb,
		testService:    testService,
		attemptService: attemptService,
		log:            log.With().Str("component", "ws_handler").Logger(),
		upgrader:       buildUpgrader(allowedOrigins),
	}
}

// AttemptStream godoc
// WS /ws/v1/student/tests/:test_id/stream
// Upgrades to WebSocket for the live session: the server pushes the
// authoritative remaining time once per second, acknowledges focus-loss
// reports, and forces the submit on deadline expiry or the third warning.
func (h *WSHandler) AttemptStream(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	testID, err := uuid.Parse(c.Param("test_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid test ID"})
		return
	}
	studentID := claims.UserID

	// The attempt must be open before a session can stream. Reconnects
	// past the deadline still attach here so the timer can force the
	// overdue submit.
	startedAt, err := h.attemptService.StartTime(c.Request.Context(), testID, studentID)
	if err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": "no open attempt for this test"})
		return
	}
	state, err := h.attemptService.State(c.Request.Context(), testID, studentID)
	if err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": "no open attempt for this test"})
		return
	}
	duration, err := h.testService.Duration(c.Request.Context(), testID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "test not found"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	safe := ws.NewSafeConn(conn)
	defer safe.Close()

	wsLog := h.log.With().
		Int64("student_id", studentID).
		Str("test_id", testID.String()).
		Logger()

	if state.Submitted {
		safe.WriteError("attempt already submitted")
		return
	}

	wsLog.Info().Msg("Student session attached")

	guard := proctor.NewSubmitGuard()

	forceSubmit := func(reason string) {
		h.forceSubmit(wsLog, safe, testID, studentID, reason)
	}

	monitor := proctor.NewMonitor(guard, func() { forceSubmit("warning_threshold") })
	timer := proctor.NewTimer(startedAt, duration, guard,
		func(remaining time.Duration) {
			safe.WriteTyped(ws.TimeResponse{Event: ws.EventTime, RemainingSeconds: remaining.Seconds()})
		},
		func() { forceSubmit("deadline") },
	)

	sessionCtx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go timer.Run(sessionCtx)

	for {
		var msg ws.RequestEnvelope
		if err := safe.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				wsLog.Warn().Err(err).Msg("Unexpected close")
			} else {
				wsLog.Debug().Msg("Connection closed")
			}
			break
		}

		switch msg.Action {
		case ws.ActionPing:
			safe.WriteTyped(ws.PongResponse{Event: ws.EventPong})
		case ws.ActionSync:
			remaining := proctor.Remaining(startedAt, duration, time.Now())
			safe.WriteTyped(ws.TimeResponse{Event: ws.EventTime, RemainingSeconds: remaining.Seconds()})
		case ws.ActionFocusLoss:
			h.handleFocusLoss(wsLog, safe, monitor, testID, studentID)
		default:
			wsLog.Warn().Str("action", string(msg.Action)).Msg("Unknown action")
			safe.WriteError("unknown action: " + string(msg.Action))
		}
	}
}

// handleFocusLoss queues the event for audit persistence and answers with
// the running warning count. The third loss trips the monitor.
func (h *WSHandler) handleFocusLoss(wsLog zerolog.Logger, safe *ws.SafeConn, monitor *proctor.Monitor, testID uuid.UUID, studentID int64) {
	ctx := context.Background()

	event, _ := json.Marshal(worker.EventPayload{
		TestID:    testID.String(),
		StudentID: studentID,
		EventType: string(model.ProctorEventFocusLoss),
		Timestamp: time.Now().Unix(),
	})
	if err := h.rdb.RPush(ctx, config.WorkerKey.PersistProctorEventsQueue, event).Err(); err != nil {
		wsLog.Error().Err(err).Msg("Failed to queue proctor event")
	}

	warnings, forced := monitor.RecordFocusLoss()
	wsLog.Info().Int("warnings", warnings).Bool("forced", forced).Msg("Focus loss recorded")

	if !forced {
		safe.WriteTyped(ws.WarningResponse{
			Event:     ws.EventWarning,
			Warnings:  warnings,
			Threshold: proctor.WarningThreshold,
		})
	}
}

// forceSubmit closes the attempt server-side with whatever answers were
// included in the student's last state. The client is told to stop; losing
// the race against a normal submit is fine, the attempt is closed either way.
func (h *WSHandler) forceSubmit(wsLog zerolog.Logger, safe *ws.SafeConn, testID uuid.UUID, studentID int64, reason string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := h.attemptService.Submit(ctx, testID, studentID, &model.SubmitAttemptRequest{
		AutoSubmitted: true,
	})
	if err != nil && !isBenignSubmitError(err) {
		wsLog.Error().Err(err).Str("reason", reason).Msg("Forced submit failed")
		safe.WriteError("forced submit failed")
		return
	}

	wsLog.Info().Str("reason", reason).Msg("Attempt force submitted")
	safe.WriteTyped(ws.ForceSubmitResponse{Event: ws.EventForceSubmit, Reason: reason})
}

func isBenignSubmitError(err error) bool {
	return errors.Is(err, service.ErrAlreadySubmitted) || errors.Is(err, service.ErrNotStarted)
}
