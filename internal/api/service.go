// Package api provides the HTTP handlers for creating and joining games,
// dispatching player actions, and querying boards and archived results,
// plus a per-game WebSocket push channel.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dwjuston/axkan-ii-backen/internal/errs"
	"github.com/dwjuston/axkan-ii-backen/internal/game"
	"github.com/dwjuston/axkan-ii-backen/internal/model"
	"github.com/dwjuston/axkan-ii-backen/internal/session"
	"github.com/dwjuston/axkan-ii-backen/internal/store"
)

// Service exposes the session manager and the result archive over HTTP.
type Service struct {
	sessions *session.Manager
	store    store.Store
	wsHub    *WSHub // optional WebSocket hub for board pushes
}

// NewService creates a new game service.
// Pass nil for hub if WebSocket pushes are not needed. A non-nil hub must
// also be the manager's Notifier for clients to receive pushes.
func NewService(m *session.Manager, st store.Store, hub *WSHub) *Service {
	return &Service{sessions: m, store: st, wsHub: hub}
}

// Routes mounts the API under r.
func (s *Service) Routes(r chi.Router) {
	r.Post("/games", s.CreateGame)
	r.Post("/games/{gameID}/players", s.JoinGame)
	r.Post("/games/{gameID}/actions", s.Act)
	r.Get("/games/{gameID}/board", s.GetBoard)
	r.Get("/games/{gameID}/result", s.GetResult)
	r.Get("/games/{gameID}/history", s.GetHistory)
	r.Get("/games/{gameID}/ws", s.HandleWS)
	r.Get("/results/{resultID}", s.GetRecord)
	r.Get("/players/{playerID}/stats", s.GetPlayerStats)
}

// --- Request/Response types ---

// JoinRequest is the JSON body for creating or joining a game.
type JoinRequest struct {
	PlayerName string `json:"player_name"`
}

// JoinResponse is returned when a player joins a game. PlayerID is the
// player's credential for every later call.
type JoinResponse struct {
	GameID   string     `json:"game_id"`
	PlayerID string     `json:"player_id"`
	Board    game.Board `json:"board"`
}

// ActionRequest is the JSON body for POST /games/{gameID}/actions.
type ActionRequest struct {
	PlayerID       string `json:"player_id"`
	Action         string `json:"action"`
	PairIndex      *int   `json:"pair_index,omitempty"`       // select_pair, color_convert (-1 = hidden pair)
	Collection     string `json:"collection,omitempty"`       // roll_dice during a turn
	SevenCardIndex *int   `json:"seven_card_index,omitempty"` // roll_dice with a special collection, color_convert
}

// ActionResponse is the acting player's view after the action.
type ActionResponse struct {
	Board    game.Board   `json:"board"`
	Result   *game.Result `json:"result,omitempty"`
	RecordID string       `json:"record_id,omitempty"`
}

// --- HTTP Handlers ---

// CreateGame handles POST /api/v1/games. The player is matched into a game
// waiting for an opponent, or a new game is created.
func (s *Service) CreateGame(w http.ResponseWriter, r *http.Request) {
	s.join(w, r, "")
}

// JoinGame handles POST /api/v1/games/{gameID}/players
func (s *Service) JoinGame(w http.ResponseWriter, r *http.Request) {
	s.join(w, r, chi.URLParam(r, "gameID"))
}

func (s *Service) join(w http.ResponseWriter, r *http.Request, gameID string) {
	var req JoinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	joined, err := s.sessions.Join(r.Context(), gameID, req.PlayerName)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, JoinResponse{
		GameID:   joined.GameID,
		PlayerID: joined.PlayerID,
		Board:    joined.Boards[joined.PlayerID],
	})
}

// Act handles POST /api/v1/games/{gameID}/actions
// Applies one action. The session notifier pushes every player's new board.
func (s *Service) Act(w http.ResponseWriter, r *http.Request) {
	var req ActionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	// --- Input validation ---
	if req.PlayerID == "" {
		writeError(w, "player_id is required", http.StatusBadRequest)
		return
	}
	action, err := game.ParseAction(req.Action)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	if action == game.JoinGame {
		writeError(w, "join through POST /games/{gameID}/players", http.StatusBadRequest)
		return
	}

	gameID := chi.URLParam(r, "gameID")
	out, err := s.sessions.Dispatch(r.Context(), gameID, req.PlayerID, action, game.Payload{
		PairIndex:      req.PairIndex,
		Collection:     req.Collection,
		SevenCardIndex: req.SevenCardIndex,
	})
	if err != nil {
		writeEngineError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, ActionResponse{
		Board:    out.Boards[req.PlayerID],
		Result:   out.Result,
		RecordID: out.RecordID,
	})
}

// GetBoard handles GET /api/v1/games/{gameID}/board?player_id=
func (s *Service) GetBoard(w http.ResponseWriter, r *http.Request) {
	playerID := r.URL.Query().Get("player_id")
	if playerID == "" {
		writeError(w, "player_id is required", http.StatusBadRequest)
		return
	}

	board, err := s.sessions.Board(chi.URLParam(r, "gameID"), playerID)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, board)
}

// GetResult handles GET /api/v1/games/{gameID}/result
// 409 until the game has ended.
func (s *Service) GetResult(w http.ResponseWriter, r *http.Request) {
	res, err := s.sessions.Result(chi.URLParam(r, "gameID"))
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// GetHistory handles GET /api/v1/games/{gameID}/history
// Returns every archived result of the game, rematches included. History
// outlives the session.
func (s *Service) GetHistory(w http.ResponseWriter, r *http.Request) {
	records, err := s.store.ListResultsByGame(r.Context(), chi.URLParam(r, "gameID"))
	if err != nil {
		writeError(w, "failed to get game history", http.StatusInternalServerError)
		return
	}
	if records == nil {
		records = []model.GameRecord{}
	}
	writeJSON(w, http.StatusOK, records)
}

// GetRecord handles GET /api/v1/results/{resultID}
func (s *Service) GetRecord(w http.ResponseWriter, r *http.Request) {
	rec, err := s.store.GetResult(r.Context(), chi.URLParam(r, "resultID"))
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// GetPlayerStats handles GET /api/v1/players/{playerID}/stats
func (s *Service) GetPlayerStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.store.GetPlayerStats(r.Context(), chi.URLParam(r, "playerID"))
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// HandleWS handles GET /api/v1/games/{gameID}/ws?player_id=
// The current board is sent as soon as the connection opens.
func (s *Service) HandleWS(w http.ResponseWriter, r *http.Request) {
	if s.wsHub == nil {
		writeError(w, "websocket push disabled", http.StatusNotFound)
		return
	}
	gameID := chi.URLParam(r, "gameID")
	playerID := r.URL.Query().Get("player_id")
	if playerID == "" {
		writeError(w, "player_id is required", http.StatusBadRequest)
		return
	}

	board, err := s.sessions.Board(gameID, playerID)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	s.wsHub.Serve(w, r, gameID, playerID, &WSMessage{Type: "board", GameID: gameID, Board: &board})
}

// statusFor maps an engine error kind to an HTTP status.
func statusFor(err error) int {
	switch errs.Kind(err) {
	case errs.ErrValidation:
		return http.StatusBadRequest
	case errs.ErrNotYourTurn:
		return http.StatusForbidden
	case errs.ErrNotFound:
		return http.StatusNotFound
	case errs.ErrIllegalPhaseAction:
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// writeEngineError writes err with its mapped status and kind code.
// Errors of no known kind are logged and reported without detail.
func writeEngineError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	msg := err.Error()
	if errs.Kind(err) == nil {
		slog.Error("request failed", "err", err)
		msg = "internal error"
	} else if errors.Is(err, errs.ErrInvariant) {
		slog.Error("invariant violation", "err", err)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg, "code": errs.Code(err)})
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
