// Package server exposes the HTTP surface: the WebSocket handshake endpoints
// feeding the realtime registry and the REST routes that persist records and
// push the resulting notifications.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/CyberAshu/Chatwave-backend/internal/config"
	"github.com/CyberAshu/Chatwave-backend/internal/registry"
	"github.com/CyberAshu/Chatwave-backend/internal/store"
)

// WebSocket close codes used to refuse a handshake after upgrade. The upgrade
// must complete first; a plain HTTP status cannot carry a close code.
const (
	closeUnknownUser = 4004
	closeNotMember   = 4003
)

// Handler bundles the dependencies the HTTP layer needs. One instance serves
// all routes; construct it with NewHandler and register it via SetupRoutes.
type Handler struct {
	cfg      *config.Config
	reg      *registry.Registry
	store    store.Store
	log      *slog.Logger
	upgrader websocket.Upgrader
}

// NewHandler wires the handler to its collaborators.
func NewHandler(cfg *config.Config, reg *registry.Registry, st store.Store, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	h := &Handler{
		cfg:   cfg,
		reg:   reg,
		store: st,
		log:   log,
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     newOriginPolicy(cfg.AllowedOrigins, log).check,
	}
	return h
}

// ServeUserSocket upgrades GET /ws/{userID} into the user's primary realtime
// session. Unknown user ids are refused with close code 4004 and never touch
// the registry.
func (h *Handler) ServeUserSocket(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
	if err != nil || userID <= 0 {
		http.Error(w, "invalid user id", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", "error", err)
		return
	}

	exists, err := h.store.UserExists(r.Context(), userID)
	if err != nil {
		h.log.Error("looking up user for handshake", "user_id", userID, "error", err)
		refuse(conn, websocket.CloseInternalServerErr, "lookup failed")
		return
	}
	if !exists {
		refuse(conn, closeUnknownUser, "unknown user")
		return
	}

	if err := h.store.TouchLastSeen(r.Context(), userID); err != nil {
		h.log.Debug("refreshing last seen on connect", "user_id", userID, "error", err)
	}

	c := newClient(h, conn, userID, 0)
	if prev := h.reg.HandleConnect(userID, c); prev != nil {
		// The replaced channel is no longer addressable; closing it lets the
		// stale transport finish its own teardown promptly.
		_ = prev.Close()
	}

	// Blocks until the connection ends, then releases the session. A session
	// replaced in the meantime is left to its successor.
	c.run(context.Background())
	h.reg.SessionClosed(userID, c)
}

// ServeGroupSocket upgrades GET /ws/group/{groupID}?user_id=N into a
// connection whose room membership follows the connection lifetime. The
// handshake verifies the user (4004), the group (4004), and persisted
// membership (4003) before the room is touched.
func (h *Handler) ServeGroupSocket(w http.ResponseWriter, r *http.Request) {
	groupID, err := strconv.ParseInt(chi.URLParam(r, "groupID"), 10, 64)
	if err != nil || groupID <= 0 {
		http.Error(w, "invalid group id", http.StatusBadRequest)
		return
	}
	userID, err := strconv.ParseInt(r.URL.Query().Get("user_id"), 10, 64)
	if err != nil || userID <= 0 {
		http.Error(w, "invalid user id", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", "error", err)
		return
	}

	refusalCode, err := h.authorizeGroupSocket(r.Context(), groupID, userID)
	if err != nil {
		h.log.Error("group handshake lookup failed", "group_id", groupID, "user_id", userID, "error", err)
		refuse(conn, websocket.CloseInternalServerErr, "lookup failed")
		return
	}
	if refusalCode != 0 {
		refuse(conn, refusalCode, "")
		return
	}

	c := newClient(h, conn, userID, groupID)
	h.reg.JoinGroup(userID, groupID)

	c.run(context.Background())
	h.reg.LeaveGroup(userID, groupID)
}

// authorizeGroupSocket returns the close code a group handshake should be
// refused with, or zero to proceed.
func (h *Handler) authorizeGroupSocket(ctx context.Context, groupID, userID int64) (int, error) {
	exists, err := h.store.UserExists(ctx, userID)
	if err != nil {
		return 0, err
	}
	if !exists {
		return closeUnknownUser, nil
	}

	exists, err = h.store.GroupExists(ctx, groupID)
	if err != nil {
		return 0, err
	}
	if !exists {
		return closeUnknownUser, nil
	}

	member, err := h.store.IsGroupMember(ctx, groupID, userID)
	if err != nil {
		return 0, err
	}
	if !member {
		return closeNotMember, nil
	}
	return 0, nil
}

func refuse(conn *websocket.Conn, code int, reason string) {
	deadline := time.Now().Add(writeWait)
	_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), deadline)
	_ = conn.Close()
}

// SendMessage handles POST /api/messages: persist a direct message and notify
// the receiver if connected. The sender id arrives in the body; the caller
// has already authenticated it.
func (h *Handler) SendMessage(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SenderID   int64  `json:"sender_id"`
		ReceiverID int64  `json:"receiver_id"`
		Content    string `json:"content"`
		ReplyToID  int64  `json:"reply_to_id"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if req.SenderID <= 0 || req.ReceiverID <= 0 || req.Content == "" {
		http.Error(w, "sender_id, receiver_id and content are required", http.StatusBadRequest)
		return
	}

	m, err := h.store.CreateMessage(r.Context(), store.Message{
		SenderID:   req.SenderID,
		ReceiverID: req.ReceiverID,
		Content:    req.Content,
		ReplyToID:  req.ReplyToID,
	})
	if err != nil {
		h.storeError(w, "creating message", err)
		return
	}

	h.reg.NotifyUser(m.ReceiverID, registry.NewMessageEvent(m))
	writeJSON(w, http.StatusCreated, m)
}

// SendFileMessage handles POST /api/messages/file: persist a direct message
// describing an uploaded attachment and notify the receiver. Blob storage is
// an external concern; only the metadata travels through here.
func (h *Handler) SendFileMessage(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SenderID   int64  `json:"sender_id"`
		ReceiverID int64  `json:"receiver_id"`
		FileURL    string `json:"file_url"`
		FileType   string `json:"file_type"`
		FileName   string `json:"file_name"`
		FileSize   int64  `json:"file_size"`
		ReplyToID  int64  `json:"reply_to_id"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if req.SenderID <= 0 || req.ReceiverID <= 0 || req.FileURL == "" || req.FileName == "" {
		http.Error(w, "sender_id, receiver_id, file_url and file_name are required", http.StatusBadRequest)
		return
	}

	m, err := h.store.CreateMessage(r.Context(), store.Message{
		SenderID:      req.SenderID,
		ReceiverID:    req.ReceiverID,
		Content:       fmt.Sprintf("Sent a file: %s", req.FileName),
		ReplyToID:     req.ReplyToID,
		HasAttachment: true,
		FileURL:       req.FileURL,
		FileType:      req.FileType,
		FileName:      req.FileName,
		FileSize:      req.FileSize,
	})
	if err != nil {
		h.storeError(w, "creating file message", err)
		return
	}

	h.reg.NotifyUser(m.ReceiverID, registry.NewFileMessageEvent(m))
	writeJSON(w, http.StatusCreated, m)
}

// UpdateMessage handles PUT /api/messages/{messageID}: change the content and
// notify the other side, the receiver for direct messages or the live room
// for group messages.
func (h *Handler) UpdateMessage(w http.ResponseWriter, r *http.Request) {
	messageID, ok := pathID(w, r, "messageID")
	if !ok {
		return
	}

	var req struct {
		Content string `json:"content"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Content == "" {
		http.Error(w, "content is required", http.StatusBadRequest)
		return
	}

	m, err := h.store.UpdateMessageContent(r.Context(), messageID, req.Content)
	if err != nil {
		h.storeError(w, "updating message", err)
		return
	}

	event := registry.MessageUpdatedEvent(m)
	if m.ReceiverID > 0 {
		h.reg.NotifyUser(m.ReceiverID, event)
	} else if m.GroupID > 0 {
		h.reg.BroadcastToGroup(m.GroupID, event, m.SenderID)
	}
	writeJSON(w, http.StatusOK, m)
}

// DeleteMessage handles DELETE /api/messages/{messageID}.
func (h *Handler) DeleteMessage(w http.ResponseWriter, r *http.Request) {
	messageID, ok := pathID(w, r, "messageID")
	if !ok {
		return
	}

	m, err := h.store.GetMessage(r.Context(), messageID)
	if err != nil {
		h.storeError(w, "fetching message", err)
		return
	}
	if err := h.store.DeleteMessage(r.Context(), messageID); err != nil {
		h.storeError(w, "deleting message", err)
		return
	}

	event := registry.MessageDeletedEvent(m.ID, m.GroupID)
	if m.ReceiverID > 0 {
		h.reg.NotifyUser(m.ReceiverID, event)
	} else if m.GroupID > 0 {
		h.reg.BroadcastToGroup(m.GroupID, event, m.SenderID)
	}
	w.WriteHeader(http.StatusNoContent)
}

// StartCall handles POST /api/calls: persist a call record and push
// incoming_call to the receiver if connected.
func (h *Handler) StartCall(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CallerID   int64  `json:"caller_id"`
		CallerName string `json:"caller_name"`
		ReceiverID int64  `json:"receiver_id"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if req.CallerID <= 0 || req.ReceiverID <= 0 {
		http.Error(w, "caller_id and receiver_id are required", http.StatusBadRequest)
		return
	}

	exists, err := h.store.UserExists(r.Context(), req.ReceiverID)
	if err != nil {
		h.storeError(w, "looking up call receiver", err)
		return
	}
	if !exists {
		http.Error(w, "receiver not found", http.StatusNotFound)
		return
	}

	c, err := h.store.CreateCall(r.Context(), store.Call{
		CallerID:   req.CallerID,
		ReceiverID: req.ReceiverID,
		Status:     store.CallInitiated,
	})
	if err != nil {
		h.storeError(w, "creating call", err)
		return
	}

	h.reg.NotifyUser(c.ReceiverID, registry.IncomingCallEvent(c, req.CallerName))
	writeJSON(w, http.StatusCreated, c)
}

// UpdateCallStatus handles PUT /api/calls/{callID}/status: accept, decline,
// or complete a call, then push call_status_updated to the other party.
func (h *Handler) UpdateCallStatus(w http.ResponseWriter, r *http.Request) {
	callID, ok := pathID(w, r, "callID")
	if !ok {
		return
	}

	var req struct {
		UserID int64  `json:"user_id"`
		Status string `json:"status"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	c, err := h.store.GetCall(r.Context(), callID)
	if err != nil {
		h.storeError(w, "fetching call", err)
		return
	}
	if req.UserID != c.CallerID && req.UserID != c.ReceiverID {
		http.Error(w, "you are not involved in this call", http.StatusForbidden)
		return
	}

	switch req.Status {
	case store.CallAccepted, store.CallDeclined:
		if req.UserID != c.ReceiverID {
			http.Error(w, "only the receiver can answer a call", http.StatusForbidden)
			return
		}
		if c.Status != store.CallInitiated {
			http.Error(w, "call cannot be answered in its current state", http.StatusBadRequest)
			return
		}
	case store.CallCompleted:
		if c.Status != store.CallAccepted {
			http.Error(w, "only active calls can be completed", http.StatusBadRequest)
			return
		}
	default:
		http.Error(w, "invalid call status update", http.StatusBadRequest)
		return
	}

	updated, err := h.store.UpdateCallStatus(r.Context(), callID, req.Status)
	if err != nil {
		h.storeError(w, "updating call", err)
		return
	}

	otherID := updated.CallerID
	if req.UserID == updated.CallerID {
		otherID = updated.ReceiverID
	}
	h.reg.NotifyUser(otherID, registry.CallStatusEvent(updated))
	writeJSON(w, http.StatusOK, updated)
}

// Health reports process liveness and store reachability.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Ping(r.Context()); err != nil {
		h.log.Error("store ping failed", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "degraded",
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "healthy",
		"sessions": h.reg.SessionCount(),
	})
}

func (h *Handler) storeError(w http.ResponseWriter, action string, err error) {
	if errors.Is(err, store.ErrNotFound) {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	h.log.Error(action, "error", err)
	http.Error(w, "internal error", http.StatusInternalServerError)
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return false
	}
	return true
}

func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		http.Error(w, "invalid "+name, http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
