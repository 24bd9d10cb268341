package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"habitloopAPI/internal/checklist"
	"habitloopAPI/internal/dayrange"
	"habitloopAPI/middleware"
	"habitloopAPI/services"
)

type ChecklistHandler struct {
	checklistService *services.ChecklistService
}

func NewChecklistHandler(checklistService *services.ChecklistService) *ChecklistHandler {
	return &ChecklistHandler{
		checklistService: checklistService,
	}
}

// clientDayHints pulls the client's calendar-day headers off the request.
// Missing or malformed hints are counted; the service layer falls back to a
// UTC day frame rather than failing the request.
func clientDayHints(r *http.Request) (string, *int) {
	day := r.Header.Get(middleware.ClientDayHeader)

	var offset *int
	if raw := r.Header.Get(middleware.ClientTzOffsetHeader); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil {
			offset = &v
		}
	}

	if !dayrange.Valid(day) || !dayrange.ValidOffset(offset) {
		middleware.CountDegradedDayResolution()
	}

	return day, offset
}

func (h *ChecklistHandler) UpsertToday(w http.ResponseWriter, r *http.Request) {
	h.upsert(w, r, 0)
}

// UpsertTomorrow lets users lay out the next day's checklist ahead of time.
// No awards fire for a future day.
func (h *ChecklistHandler) UpsertTomorrow(w http.ResponseWriter, r *http.Request) {
	h.upsert(w, r, 1)
}

func (h *ChecklistHandler) upsert(w http.ResponseWriter, r *http.Request, dayOffset int) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	var req checklist.UpsertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	clientDay, tzOffset := clientDayHints(r)

	result, err := h.checklistService.UpsertDay(ctx, clerkID, req.Tasks, clientDay, tzOffset, dayOffset)
	if err != nil {
		respondWithError(w, statusFor(err, http.StatusInternalServerError), err.Error())
		return
	}

	respondWithJSON(w, http.StatusOK, result)
}

func (h *ChecklistHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	_, tzOffset := clientDayHints(r)

	groups, err := h.checklistService.History(ctx, clerkID, tzOffset)
	if err != nil {
		respondWithError(w, statusFor(err, http.StatusInternalServerError), "Failed to fetch history")
		return
	}

	respondWithJSON(w, http.StatusOK, groups)
}

func (h *ChecklistHandler) GetStreak(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	clientDay, tzOffset := clientDayHints(r)

	streak, err := h.checklistService.CurrentStreak(ctx, clerkID, clientDay, tzOffset)
	if err != nil {
		respondWithError(w, statusFor(err, http.StatusInternalServerError), "Failed to compute streak")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]int{"current_streak": streak})
}
