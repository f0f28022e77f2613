package server

import (
	"context"
	"errors"

	"github.com/napoleonhq/scorekeeper/internal/napoleon"
)

var (
	ErrNotFound = errors.New("not found")
	// ErrConflict marks a rejected state transition: mutating a finished
	// game, creating a game for a player already in one, reusing an email.
	ErrConflict = errors.New("state conflict")
)

// Document types stored as JSONB in per-model tables. Field names mirror
// the wire format so the stored form and the API form stay identical.

type userDoc struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
	Role        string `json:"role"`
	CreatedAt   string `json:"createdAt"`
}

type sessionDoc struct {
	UserID string `json:"userId"`
}

type gameDoc struct {
	ID              string              `json:"id"`
	Players         []string            `json:"players"`
	LeadPlayerID    string              `json:"leadPlayerId"`
	StakeMultiplier float64             `json:"stakeMultiplier"`
	Scores          napoleon.ScoreMap   `json:"scores"`
	Status          napoleon.GameStatus `json:"status"`
	SeasonID        string              `json:"seasonId,omitempty"`
	CreatedAt       string              `json:"createdAt"`
	FinishedAt      *string             `json:"finishedAt,omitempty"`
}

type roundDoc struct {
	ID           string                `json:"id"`
	NapoleonID   string                `json:"napoleonId"`
	SecretaryID  string                `json:"secretaryId"`
	ContractType napoleon.ContractType `json:"contractType"`
	TrickMargin  int                   `json:"trickMargin"`
	Scores       napoleon.ScoreMap     `json:"scores"`
	CreatedAt    string                `json:"createdAt"`
	UpdatedAt    string                `json:"updatedAt,omitempty"`
}

type seasonDoc struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	StartDate string  `json:"startDate"`
	EndDate   *string `json:"endDate,omitempty"`
	IsActive  bool    `json:"isActive"`
	CreatedAt string  `json:"createdAt"`
}

// GameQuery filters QueryGames. Zero fields are ignored. PlayerID is an
// array-membership filter on the game's roster.
type GameQuery struct {
	PlayerID string
	Status   napoleon.GameStatus
	SeasonID string
}

type Store interface {
	// Users and sessions.
	CreateUser(ctx context.Context, u userDoc, passwordHash string) error
	UserByEmail(ctx context.Context, email string) (userDoc, string, error)
	GetUser(ctx context.Context, id string) (userDoc, error)
	ListUsers(ctx context.Context) ([]userDoc, error)
	UpdateUser(ctx context.Context, u userDoc) error
	DeleteUser(ctx context.Context, id string) error
	CreateSession(ctx context.Context, userID string) (token string, err error)
	DeleteSession(ctx context.Context, token string) error
	SessionUser(ctx context.Context, token string) (userDoc, error)

	// Games.
	CreateGame(ctx context.Context, g gameDoc) error
	GetGame(ctx context.Context, id string) (gameDoc, error)
	QueryGames(ctx context.Context, q GameQuery) ([]gameDoc, error)
	WriteGameTotals(ctx context.Context, gameID string, totals napoleon.ScoreMap) error
	IncrementGameTotals(ctx context.Context, gameID string, delta napoleon.ScoreMap) error
	SetGameStatus(ctx context.Context, gameID string, status napoleon.GameStatus, finishedAt *string) error
	SetGameStake(ctx context.Context, gameID string, stake float64) error
	DeleteGame(ctx context.Context, gameID string) error

	// Rounds — a game's exclusively owned sub-collection.
	ListRounds(ctx context.Context, gameID string) ([]roundDoc, error)
	AppendRound(ctx context.Context, gameID string, r roundDoc) error
	ReplaceRound(ctx context.Context, gameID, roundID string, r roundDoc) error
	DeleteRound(ctx context.Context, gameID, roundID string) error

	// Seasons.
	PutSeason(ctx context.Context, s seasonDoc) error
	GetSeason(ctx context.Context, id string) (seasonDoc, error)
	ListSeasons(ctx context.Context) ([]seasonDoc, error)
	ActiveSeason(ctx context.Context) (seasonDoc, error)
	EndActiveSeasons(ctx context.Context, endDate string) error
}
