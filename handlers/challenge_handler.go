package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"habitloopAPI/internal/challenge"
	"habitloopAPI/middleware"
	"habitloopAPI/services"
)

type ChallengeHandler struct {
	challengeService *services.ChallengeService
}

func NewChallengeHandler(challengeService *services.ChallengeService) *ChallengeHandler {
	return &ChallengeHandler{
		challengeService: challengeService,
	}
}

func (h *ChallengeHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	var req challenge.CreateChallengeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	ch, err := h.challengeService.CreateChallenge(ctx, clerkID, &req)
	if err != nil {
		respondWithError(w, statusFor(err, http.StatusInternalServerError), err.Error())
		return
	}

	respondWithJSON(w, http.StatusCreated, ch)
}

func (h *ChallengeHandler) Get(w http.ResponseWriter, r *http.Request) {
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

	ch, err := h.challengeService.GetChallenge(ctx, challengeID)
	if err != nil {
		respondWithError(w, statusFor(err, http.StatusInternalServerError), "Challenge not found")
		return
	}

	respondWithJSON(w, http.StatusOK, ch)
}

func (h *ChallengeHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	scope := r.URL.Query().Get("scope")
	search := r.URL.Query().Get("search")

	challenges, err := h.challengeService.ListChallenges(ctx, clerkID, scope, search)
	if err != nil {
		respondWithError(w, statusFor(err, http.StatusInternalServerError), "Failed to fetch challenges")
		return
	}

	respondWithJSON(w, http.StatusOK, challenges)
}

func (h *ChallengeHandler) Delete(w http.ResponseWriter, r *http.Request) {
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

	if err := h.challengeService.DeleteChallenge(ctx, clerkID, challengeID); err != nil {
		respondWithError(w, statusFor(err, http.StatusInternalServerError), err.Error())
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{"message": "Challenge deleted successfully"})
}

func (h *ChallengeHandler) Join(w http.ResponseWriter, r *http.Request) {
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

	if err := h.challengeService.JoinChallenge(ctx, clerkID, challengeID); err != nil {
		respondWithError(w, statusFor(err, http.StatusInternalServerError), err.Error())
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{"message": "Joined challenge"})
}

func (h *ChallengeHandler) Leave(w http.ResponseWriter, r *http.Request) {
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

	if err := h.challengeService.LeaveChallenge(ctx, clerkID, challengeID); err != nil {
		respondWithError(w, statusFor(err, http.StatusInternalServerError), err.Error())
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{"message": "Left challenge"})
}

func (h *ChallengeHandler) SetCompletedDays(w http.ResponseWriter, r *http.Request) {
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

	var req challenge.SetCompletedDaysRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	clientDay, tzOffset := clientDayHints(r)

	result, err := h.challengeService.SetCompletedDays(ctx, clerkID, challengeID, req.CompletedDays, clientDay, tzOffset)
	if err != nil {
		respondWithError(w, statusFor(err, http.StatusInternalServerError), err.Error())
		return
	}

	respondWithJSON(w, http.StatusOK, result)
}

func (h *ChallengeHandler) IsDayCompleted(w http.ResponseWriter, r *http.Request) {
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

	dayKey := mux.Vars(r)["day"]

	completed, err := h.challengeService.IsDayCompleted(ctx, clerkID, challengeID, dayKey)
	if err != nil {
		respondWithError(w, statusFor(err, http.StatusInternalServerError), err.Error())
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]any{"day": dayKey, "completed": completed})
}

func (h *ChallengeHandler) Watch(w http.ResponseWriter, r *http.Request) {
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

	if err := h.challengeService.WatchChallenge(ctx, clerkID, challengeID); err != nil {
		respondWithError(w, statusFor(err, http.StatusInternalServerError), err.Error())
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{"message": "Watching challenge"})
}

func (h *ChallengeHandler) Unwatch(w http.ResponseWriter, r *http.Request) {
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

	if err := h.challengeService.UnwatchChallenge(ctx, clerkID, challengeID); err != nil {
		respondWithError(w, statusFor(err, http.StatusInternalServerError), err.Error())
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{"message": "Stopped watching challenge"})
}

func pathUUID(r *http.Request, name string) (uuid.UUID, error) {
	return uuid.Parse(mux.Vars(r)[name])
}
