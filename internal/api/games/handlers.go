// internal/api/games/handlers.go
package games

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/codr1/Rollcall/internal/api/apiutil"
	"github.com/codr1/Rollcall/internal/apperr"
	"github.com/codr1/Rollcall/internal/db"
	gamesvc "github.com/codr1/Rollcall/internal/games"
	"github.com/codr1/Rollcall/internal/ledger"
)

const gamesRequestTimeout = 10 * time.Second

var service *gamesvc.Service

// InitHandlers must be called during server startup before handling requests.
func InitHandlers(svc *gamesvc.Service) {
	if svc == nil {
		return
	}
	service = svc
}

func loadService() *gamesvc.Service {
	return service
}

type generateRequest struct {
	TeamCount int    `json:"teamCount"`
	Mode      string `json:"mode"`
}

// scoreRequest accepts {quarter, teamNumber, score} for two-team rounds or
// {quarter, team1, team2, score1, score2} for a single match.
type scoreRequest struct {
	Quarter    int  `json:"quarter"`
	TeamNumber *int `json:"teamNumber"`
	Score      *int `json:"score"`
	Team1      int  `json:"team1"`
	Team2      int  `json:"team2"`
	Score1     *int `json:"score1"`
	Score2     *int `json:"score2"`
}

type roundsResponse struct {
	GameID int64          `json:"gameId"`
	Rounds []ledger.Round `json:"rounds"`
}

type roundResponse struct {
	GameID int64        `json:"gameId"`
	Round  ledger.Round `json:"round"`
}

// GET /api/v1/games/{id}/rounds
func HandleListRounds(w http.ResponseWriter, r *http.Request) {
	svc, ok := requireService(w, r)
	if !ok {
		return
	}
	gameID, err := apiutil.PathID(r, "id")
	if err != nil {
		apiutil.WriteError(w, r, apperr.Validation("%s", err.Error()))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), gamesRequestTimeout)
	defer cancel()

	rounds, err := svc.Rounds(ctx, gameID)
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, roundsResponse{GameID: gameID, Rounds: rounds})
}

// POST /api/v1/games/{id}/rounds
func HandleGenerateRound(w http.ResponseWriter, r *http.Request) {
	svc, ok := requireService(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), gamesRequestTimeout)
	defer cancel()

	game, ok := requireGameManager(ctx, w, r, svc)
	if !ok {
		return
	}

	var req generateRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		apiutil.WriteError(w, r, apperr.Validation("invalid request body: %v", err))
		return
	}

	round, err := svc.GenerateMatch(ctx, gamesvc.GenerateMatchInput{
		GameID:    game.ID,
		TeamCount: req.TeamCount,
		Mode:      req.Mode,
	})
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, roundResponse{GameID: game.ID, Round: round})
}

// POST /api/v1/games/{id}/rounds/{round_id}/quarters
func HandleAddQuarter(w http.ResponseWriter, r *http.Request) {
	svc, ok := requireService(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), gamesRequestTimeout)
	defer cancel()

	game, ok := requireGameManager(ctx, w, r, svc)
	if !ok {
		return
	}

	round, err := svc.AddQuarter(ctx, game.ID, r.PathValue("round_id"))
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, roundResponse{GameID: game.ID, Round: round})
}

// PUT /api/v1/games/{id}/rounds/{round_id}/scores
func HandleSetScore(w http.ResponseWriter, r *http.Request) {
	svc, ok := requireService(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), gamesRequestTimeout)
	defer cancel()

	game, ok := requireGameManager(ctx, w, r, svc)
	if !ok {
		return
	}

	var req scoreRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		apiutil.WriteError(w, r, apperr.Validation("invalid request body: %v", err))
		return
	}

	in := gamesvc.SetScoreInput{
		GameID:  game.ID,
		RoundID: r.PathValue("round_id"),
		Quarter: req.Quarter,
		Team1:   req.Team1,
		Team2:   req.Team2,
	}
	if req.TeamNumber == nil {
		if req.Score1 == nil || req.Score2 == nil {
			apiutil.WriteError(w, r, apperr.Validation("score1 and score2 are required with team1 and team2"))
			return
		}
		in.Score1 = *req.Score1
		in.Score2 = *req.Score2
	} else {
		if req.Score == nil {
			apiutil.WriteError(w, r, apperr.Validation("score is required with teamNumber"))
			return
		}
		if *req.TeamNumber == 0 {
			apiutil.WriteError(w, r, apperr.Validation("teamNumber must be at least 1"))
			return
		}
		in.TeamNumber = *req.TeamNumber
		in.Score = *req.Score
	}

	round, err := svc.SetScore(ctx, in)
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, roundResponse{GameID: game.ID, Round: round})
}

// GET /api/v1/teams/{id}/stats
func HandleTeamStats(w http.ResponseWriter, r *http.Request) {
	svc, ok := requireService(w, r)
	if !ok {
		return
	}
	teamID, err := apiutil.PathID(r, "id")
	if err != nil {
		apiutil.WriteError(w, r, apperr.Validation("%s", err.Error()))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), gamesRequestTimeout)
	defer cancel()

	stats, err := svc.TeamStats(ctx, teamID)
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, stats)
}

func requireService(w http.ResponseWriter, r *http.Request) (*gamesvc.Service, bool) {
	svc := loadService()
	if svc == nil {
		log.Ctx(r.Context()).Error().Msg("Games service not initialized")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return nil, false
	}
	return svc, true
}

// requireGameManager loads the game named by {id} and checks that the caller
// manages the team that owns it.
func requireGameManager(ctx context.Context, w http.ResponseWriter, r *http.Request, svc *gamesvc.Service) (db.Game, bool) {
	gameID, err := apiutil.PathID(r, "id")
	if err != nil {
		apiutil.WriteError(w, r, apperr.Validation("%s", err.Error()))
		return db.Game{}, false
	}
	game, err := svc.Queries().GetGame(ctx, gameID)
	if err != nil {
		apiutil.WriteError(w, r, err)
		return db.Game{}, false
	}
	if !apiutil.RequireTeamManager(w, r, svc.Queries(), game.TeamID) {
		return db.Game{}, false
	}
	return game, true
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, payload any) {
	if err := apiutil.WriteJSON(w, status, payload); err != nil {
		log.Ctx(r.Context()).Error().Err(err).Msg("Failed to write response")
	}
}

// RegisterRoutes mounts the game and team statistics endpoints on mux.
func RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/games/{id}/rounds", HandleListRounds)
	mux.HandleFunc("POST /api/v1/games/{id}/rounds", HandleGenerateRound)
	mux.HandleFunc("POST /api/v1/games/{id}/rounds/{round_id}/quarters", HandleAddQuarter)
	mux.HandleFunc("PUT /api/v1/games/{id}/rounds/{round_id}/scores", HandleSetScore)
	mux.HandleFunc("GET /api/v1/teams/{id}/stats", HandleTeamStats)
}
