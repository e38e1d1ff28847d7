package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/projectxs/backend/internal/apperror"
	"github.com/projectxs/backend/internal/service"
)

// FriendHandler serves the social-graph endpoints. All of these sit behind
// the RequireAuth middleware — the routes take explicit public IDs (the
// launcher already has them on hand), but only holders of a valid session
// token get an answer.
type FriendHandler struct {
	friends *service.FriendService
	logger  *slog.Logger
}

func NewFriendHandler(friends *service.FriendService, logger *slog.Logger) *FriendHandler {
	return &FriendHandler{friends: friends, logger: logger}
}

// HandleSearch finds a player by username and/or public ID.
//
// HTTP: GET /api/users/search?username=...&userId=...
func (h *FriendHandler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	username := r.URL.Query().Get("username")
	publicID := r.URL.Query().Get("userId")
	if username == "" && publicID == "" {
		writeError(w, apperror.ValidationFailed("query", "Username or userId required"))
		return
	}

	profile, err := h.friends.SearchUser(r.Context(), username, publicID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"success": true, "user": profile})
}

// HandleListFriends returns a player's friends.
//
// HTTP: GET /api/friends/{userId}
func (h *FriendHandler) HandleListFriends(w http.ResponseWriter, r *http.Request) {
	publicID := chi.URLParam(r, "userId")

	friends, err := h.friends.ListFriends(r.Context(), publicID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"success": true, "friends": friends})
}

// HandleSendRequest creates a pending friend request.
//
// HTTP: POST /api/friends/request
// Body: {"senderUserId", "receiverUsername", "receiverUserId"}
func (h *FriendHandler) HandleSendRequest(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SenderPublicID   string `json:"senderUserId"`
		ReceiverUsername string `json:"receiverUsername"`
		ReceiverPublicID string `json:"receiverUserId"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.SenderPublicID == "" || req.ReceiverUsername == "" || req.ReceiverPublicID == "" {
		writeError(w, apperror.ValidationFailed("body", "Missing required fields"))
		return
	}

	request, err := h.friends.SendRequest(r.Context(),
		req.SenderPublicID, req.ReceiverUsername, req.ReceiverPublicID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"message":   "Friend request sent to " + req.ReceiverUsername,
		"requestId": request.ID,
	})
}

// HandleListRequests returns a player's incoming pending requests.
//
// HTTP: GET /api/friends/requests/{userId}
func (h *FriendHandler) HandleListRequests(w http.ResponseWriter, r *http.Request) {
	publicID := chi.URLParam(r, "userId")

	requests, err := h.friends.ListPendingRequests(r.Context(), publicID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"success": true, "requests": requests})
}

// HandleAcceptRequest accepts a pending friend request.
//
// HTTP: POST /api/friends/accept/{requestId}
func (h *FriendHandler) HandleAcceptRequest(w http.ResponseWriter, r *http.Request) {
	if err := h.friends.AcceptRequest(r.Context(), chi.URLParam(r, "requestId")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Friend request accepted"})
}

// HandleRejectRequest rejects a pending friend request.
//
// HTTP: POST /api/friends/reject/{requestId}
func (h *FriendHandler) HandleRejectRequest(w http.ResponseWriter, r *http.Request) {
	if err := h.friends.RejectRequest(r.Context(), chi.URLParam(r, "requestId")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Friend request rejected"})
}

// HandleRemoveFriend deletes a friendship (both directions).
//
// HTTP: DELETE /api/friends/{userId}/{friendUserId}
func (h *FriendHandler) HandleRemoveFriend(w http.ResponseWriter, r *http.Request) {
	err := h.friends.RemoveFriend(r.Context(),
		chi.URLParam(r, "userId"), chi.URLParam(r, "friendUserId"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Friend removed"})
}
