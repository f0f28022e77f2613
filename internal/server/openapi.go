package server

import (
	"encoding/json"
	"net/http"

	openapi "github.com/swaggest/openapi-go"
	"github.com/swaggest/openapi-go/openapi3"
)

// ErrorResponse is returned for all error responses.
type ErrorResponse struct {
	Error string `json:"error"`
}

// HealthResponse maps dependency names to their check status.
type HealthResponse map[string]struct {
	Status string `json:"status"`
}

func newOpenAPISpec() *openapi3.Spec {
	r := openapi3.NewReflector()
	r.Spec.Info.Title = "Napoleon Scorekeeper API"
	r.Spec.Info.Version = "0.1.0"
	r.Spec.Info.WithDescription("Backend API for tracking Napoleon card game scores.")

	// GET /healthz
	getHealthz, _ := r.NewOperationContext(http.MethodGet, "/healthz")
	getHealthz.SetSummary("Health check")
	getHealthz.SetDescription("Returns the health status of backend dependencies.")
	getHealthz.AddRespStructure(HealthResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	getHealthz.AddRespStructure(HealthResponse{}, openapi.WithHTTPStatus(http.StatusServiceUnavailable))
	_ = r.AddOperation(getHealthz)

	// POST /api/auth/register
	postRegister, _ := r.NewOperationContext(http.MethodPost, "/api/auth/register")
	postRegister.SetSummary("Register")
	postRegister.SetDescription("Creates a user account and returns a session token.")
	postRegister.AddReqStructure(RegisterRequest{})
	postRegister.AddRespStructure(AuthResponse{}, openapi.WithHTTPStatus(http.StatusCreated))
	postRegister.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	postRegister.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusConflict))
	_ = r.AddOperation(postRegister)

	// POST /api/auth/login
	postLogin, _ := r.NewOperationContext(http.MethodPost, "/api/auth/login")
	postLogin.SetSummary("Log in")
	postLogin.SetDescription("Authenticate with email and password. Returns a session token.")
	postLogin.AddReqStructure(LoginRequest{})
	postLogin.AddRespStructure(AuthResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	postLogin.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	_ = r.AddOperation(postLogin)

	// POST /api/auth/logout
	postLogout, _ := r.NewOperationContext(http.MethodPost, "/api/auth/logout")
	postLogout.SetSummary("Log out")
	postLogout.SetDescription("Invalidates the current session. Requires Bearer token.")
	postLogout.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusNoContent))
	_ = r.AddOperation(postLogout)

	// GET /api/me
	getMe, _ := r.NewOperationContext(http.MethodGet, "/api/me")
	getMe.SetSummary("Current user")
	getMe.SetDescription("Returns the currently authenticated user. Requires Bearer token.")
	getMe.AddRespStructure(UserInfo{}, openapi.WithHTTPStatus(http.StatusOK))
	getMe.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	_ = r.AddOperation(getMe)

	// GET /api/users
	listUsers, _ := r.NewOperationContext(http.MethodGet, "/api/users")
	listUsers.SetSummary("List users")
	listUsers.SetDescription("Returns all registered users for player selection. Requires Bearer token.")
	listUsers.AddRespStructure([]UserInfo{}, openapi.WithHTTPStatus(http.StatusOK))
	listUsers.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	_ = r.AddOperation(listUsers)

	// PUT /api/users/{userID}
	updateUser, _ := r.NewOperationContext(http.MethodPut, "/api/users/{userID}")
	updateUser.SetSummary("Update user")
	updateUser.SetDescription("Updates a user's display name or role. Requires admin role.")
	updateUser.AddReqStructure(UserUpdateRequest{})
	updateUser.AddRespStructure(UserInfo{}, openapi.WithHTTPStatus(http.StatusOK))
	updateUser.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	updateUser.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(updateUser)

	// DELETE /api/users/{userID}
	deleteUser, _ := r.NewOperationContext(http.MethodDelete, "/api/users/{userID}")
	deleteUser.SetSummary("Delete user")
	deleteUser.SetDescription("Deletes a user. Blocked while the user is in an ongoing game. Requires admin role.")
	deleteUser.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusNoContent))
	deleteUser.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusConflict))
	deleteUser.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(deleteUser)

	// POST /api/games
	createGame, _ := r.NewOperationContext(http.MethodPost, "/api/games")
	createGame.SetSummary("Start a game")
	createGame.SetDescription("Starts a game with 4 or 5 players and a stake multiplier. Requires Bearer token.")
	createGame.AddReqStructure(CreateGameRequest{})
	createGame.AddRespStructure(GameResponse{}, openapi.WithHTTPStatus(http.StatusCreated))
	createGame.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	createGame.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusConflict))
	_ = r.AddOperation(createGame)

	// GET /api/games
	listGames, _ := r.NewOperationContext(http.MethodGet, "/api/games")
	listGames.SetSummary("List games")
	listGames.SetDescription("Lists games, filterable by playerId, seasonId and status. Requires Bearer token.")
	listGames.AddRespStructure([]GameResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	listGames.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	_ = r.AddOperation(listGames)

	// GET /api/games/current
	currentGame, _ := r.NewOperationContext(http.MethodGet, "/api/games/current")
	currentGame.SetSummary("Current game")
	currentGame.SetDescription("Returns the caller's ongoing game with its rounds. Requires Bearer token.")
	currentGame.AddRespStructure(GameDetailResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	currentGame.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(currentGame)

	// GET /api/games/{gameID}
	getGame, _ := r.NewOperationContext(http.MethodGet, "/api/games/{gameID}")
	getGame.SetSummary("Get game")
	getGame.SetDescription("Returns a game with its round history. Requires Bearer token.")
	getGame.AddRespStructure(GameDetailResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	getGame.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(getGame)

	// POST /api/games/{gameID}/finish
	finishGame, _ := r.NewOperationContext(http.MethodPost, "/api/games/{gameID}/finish")
	finishGame.SetSummary("Finish game")
	finishGame.SetDescription("Marks a game finished and returns the monetary results. Requires Bearer token.")
	finishGame.AddRespStructure(FinishGameResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	finishGame.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusConflict))
	finishGame.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(finishGame)

	// PUT /api/games/{gameID}/stake
	updateStake, _ := r.NewOperationContext(http.MethodPut, "/api/games/{gameID}/stake")
	updateStake.SetSummary("Update stake")
	updateStake.SetDescription("Changes the stake multiplier of an ongoing game. Requires admin role.")
	updateStake.AddReqStructure(StakeRequest{})
	updateStake.AddRespStructure(GameResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	updateStake.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	updateStake.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusConflict))
	_ = r.AddOperation(updateStake)

	// DELETE /api/games/{gameID}
	deleteGame, _ := r.NewOperationContext(http.MethodDelete, "/api/games/{gameID}")
	deleteGame.SetSummary("Delete game")
	deleteGame.SetDescription("Deletes a finished game and all of its rounds. Requires admin role.")
	deleteGame.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusNoContent))
	deleteGame.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusConflict))
	deleteGame.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(deleteGame)

	// POST /api/games/{gameID}/rounds
	addRound, _ := r.NewOperationContext(http.MethodPost, "/api/games/{gameID}/rounds")
	addRound.SetSummary("Record round")
	addRound.SetDescription("Scores and appends a round to an ongoing game. Requires Bearer token.")
	addRound.AddReqStructure(RoundRequest{})
	addRound.AddRespStructure(RoundResponse{}, openapi.WithHTTPStatus(http.StatusCreated))
	addRound.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	addRound.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusConflict))
	_ = r.AddOperation(addRound)

	// PUT /api/games/{gameID}/rounds/{roundID}
	editRound, _ := r.NewOperationContext(http.MethodPut, "/api/games/{gameID}/rounds/{roundID}")
	editRound.SetSummary("Edit round")
	editRound.SetDescription("Rescores a round and recomputes the game totals. Requires admin role.")
	editRound.AddReqStructure(RoundRequest{})
	editRound.AddRespStructure(RoundResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	editRound.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	editRound.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(editRound)

	// DELETE /api/games/{gameID}/rounds/{roundID}
	deleteRound, _ := r.NewOperationContext(http.MethodDelete, "/api/games/{gameID}/rounds/{roundID}")
	deleteRound.SetSummary("Delete round")
	deleteRound.SetDescription("Removes a round and recomputes the game totals. Requires admin role.")
	deleteRound.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusNoContent))
	deleteRound.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(deleteRound)

	// GET /api/games/{gameID}/events
	getEvents, _ := r.NewOperationContext(http.MethodGet, "/api/games/{gameID}/events")
	getEvents.SetSummary("SSE event stream")
	getEvents.SetDescription("Server-Sent Events stream for live score updates. Pass token as query parameter.")
	getEvents.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusOK),
		openapi.WithContentType("text/event-stream"))
	_ = r.AddOperation(getEvents)

	// GET /api/seasons
	listSeasons, _ := r.NewOperationContext(http.MethodGet, "/api/seasons")
	listSeasons.SetSummary("List seasons")
	listSeasons.SetDescription("Returns all seasons, newest first. Requires Bearer token.")
	listSeasons.AddRespStructure([]SeasonResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	_ = r.AddOperation(listSeasons)

	// GET /api/seasons/active
	activeSeason, _ := r.NewOperationContext(http.MethodGet, "/api/seasons/active")
	activeSeason.SetSummary("Active season")
	activeSeason.SetDescription("Returns the currently active season. Requires Bearer token.")
	activeSeason.AddRespStructure(SeasonResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	activeSeason.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(activeSeason)

	// POST /api/seasons
	createSeason, _ := r.NewOperationContext(http.MethodPost, "/api/seasons")
	createSeason.SetSummary("Start season")
	createSeason.SetDescription("Ends the active season and starts a new one. Requires admin role.")
	createSeason.AddReqStructure(SeasonRequest{})
	createSeason.AddRespStructure(SeasonResponse{}, openapi.WithHTTPStatus(http.StatusCreated))
	createSeason.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	_ = r.AddOperation(createSeason)

	// POST /api/seasons/{seasonID}/end
	endSeason, _ := r.NewOperationContext(http.MethodPost, "/api/seasons/{seasonID}/end")
	endSeason.SetSummary("End season")
	endSeason.SetDescription("Ends an active season. Requires admin role.")
	endSeason.AddRespStructure(SeasonResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	endSeason.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusConflict))
	endSeason.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(endSeason)

	// GET /api/seasons/{seasonID}/stats
	seasonStats, _ := r.NewOperationContext(http.MethodGet, "/api/seasons/{seasonID}/stats")
	seasonStats.SetSummary("Season statistics")
	seasonStats.SetDescription("Aggregated per-player statistics over the season's finished games. Requires Bearer token.")
	seasonStats.AddRespStructure(SeasonStats{}, openapi.WithHTTPStatus(http.StatusOK))
	seasonStats.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(seasonStats)

	return r.Spec
}

func handleOpenAPI() http.HandlerFunc {
	spec := newOpenAPISpec()
	data, _ := json.MarshalIndent(spec, "", "  ")

	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
	}
}
