package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"habitloopAPI/internal/comment"
	"habitloopAPI/middleware"
	"habitloopAPI/services"
)

type CommentHandler struct {
	commentService *services.CommentService
}

func NewCommentHandler(commentService *services.CommentService) *CommentHandler {
	return &CommentHandler{
		commentService: commentService,
	}
}

func (h *CommentHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	challengeID, err := pathUUID(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid challenge id")
		return
	}

	var req comment.CreateCommentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	c, err := h.commentService.CreateComment(ctx, clerkID, challengeID, &req)
	if err != nil {
		respondWithError(w, statusFor(err, http.StatusInternalServerError), err.Error())
		return
	}

	respondWithJSON(w, http.StatusCreated, c)
}

func (h *CommentHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if _, ok := middleware.GetClerkID(ctx); !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	challengeID, err := pathUUID(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid challenge id")
		return
	}

	comments, err := h.commentService.ListComments(ctx, challengeID)
	if err != nil {
		respondWithError(w, statusFor(err, http.StatusInternalServerError), "Failed to fetch comments")
		return
	}

	respondWithJSON(w, http.StatusOK, comments)
}

func (h *CommentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	commentID, err := pathUUID(r, "commentId")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid comment id")
		return
	}

	if err := h.commentService.DeleteComment(ctx, clerkID, commentID); err != nil {
		respondWithError(w, statusFor(err, http.StatusInternalServerError), err.Error())
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{"message": "Comment deleted successfully"})
}
