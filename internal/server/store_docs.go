package server

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/napoleonhq/scorekeeper/internal/napoleon"
)

// storedUser is the persisted shape of a user: the public document plus
// the password hash, which never appears in API responses.
type storedUser struct {
	userDoc
	PasswordHash string `json:"passwordHash"`
}

// DocStore implements Store with per-model tables holding JSONB data
// columns. A few fields are extracted into real columns (status,
// season_id, created_at) so queries can filter and order without
// unpacking every document.
type DocStore struct {
	db *sql.DB
}

func NewDocStore(db *sql.DB) *DocStore {
	return &DocStore{db: db}
}

// Generic helpers — same shape for every table.

func (s *DocStore) get(ctx context.Context, table, id string, dest any) error {
	var data string
	err := s.db.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT json(data) FROM %s WHERE id = ?`, table), id,
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	return json.Unmarshal([]byte(data), dest)
}

func (s *DocStore) del(ctx context.Context, table, id string) error {
	result, err := s.db.ExecContext(ctx,
		fmt.Sprintf(`DELETE FROM %s WHERE id = ?`, table), id,
	)
	if err != nil {
		return err
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func newID() string {
	b := make([]byte, 16)
	rand.Read(b)
	return hex.EncodeToString(b)
}

func nowUTC() string {
	return time.Now().UTC().Format("2006-01-02T15:04:05.000Z")
}

// Users and sessions

func (s *DocStore) CreateUser(ctx context.Context, u userDoc, passwordHash string) error {
	data, err := json.Marshal(storedUser{userDoc: u, PasswordHash: passwordHash})
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO users (id, email, data) VALUES (?, ?, jsonb(?))`,
		u.ID, u.Email, string(data),
	)
	if err != nil && strings.Contains(err.Error(), "UNIQUE") {
		return fmt.Errorf("%w: email already registered", ErrConflict)
	}
	return err
}

func (s *DocStore) UserByEmail(ctx context.Context, email string) (userDoc, string, error) {
	var data string
	err := s.db.QueryRowContext(ctx,
		`SELECT json(data) FROM users WHERE email = ?`, email,
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return userDoc{}, "", ErrNotFound
	}
	if err != nil {
		return userDoc{}, "", err
	}
	var su storedUser
	if err := json.Unmarshal([]byte(data), &su); err != nil {
		return userDoc{}, "", err
	}
	return su.userDoc, su.PasswordHash, nil
}

func (s *DocStore) GetUser(ctx context.Context, id string) (userDoc, error) {
	var su storedUser
	if err := s.get(ctx, "users", id, &su); err != nil {
		return userDoc{}, err
	}
	return su.userDoc, nil
}

func (s *DocStore) ListUsers(ctx context.Context) ([]userDoc, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT json(data) FROM users ORDER BY email`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []userDoc
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		var su storedUser
		if err := json.Unmarshal([]byte(data), &su); err != nil {
			return nil, err
		}
		users = append(users, su.userDoc)
	}
	return users, rows.Err()
}

func (s *DocStore) UpdateUser(ctx context.Context, u userDoc) error {
	// Preserve the stored password hash.
	var su storedUser
	if err := s.get(ctx, "users", u.ID, &su); err != nil {
		return err
	}
	su.userDoc = u
	data, err := json.Marshal(su)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`UPDATE users SET email = ?, data = jsonb(?) WHERE id = ?`,
		u.Email, string(data), u.ID,
	)
	return err
}

func (s *DocStore) DeleteUser(ctx context.Context, id string) error {
	return s.del(ctx, "users", id)
}

func (s *DocStore) CreateSession(ctx context.Context, userID string) (string, error) {
	token := newID()
	data, err := json.Marshal(sessionDoc{UserID: userID})
	if err != nil {
		return "", err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO sessions (id, data) VALUES (?, jsonb(?))`,
		token, string(data),
	)
	if err != nil {
		return "", err
	}
	return token, nil
}

func (s *DocStore) DeleteSession(ctx context.Context, token string) error {
	return s.del(ctx, "sessions", token)
}

func (s *DocStore) SessionUser(ctx context.Context, token string) (userDoc, error) {
	var sess sessionDoc
	if err := s.get(ctx, "sessions", token, &sess); err != nil {
		return userDoc{}, err
	}
	return s.GetUser(ctx, sess.UserID)
}

// Games

func (s *DocStore) CreateGame(ctx context.Context, g gameDoc) error {
	data, err := json.Marshal(g)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO games (id, status, season_id, created_at, finished_at, data)
		 VALUES (?, ?, NULLIF(?, ''), ?, ?, jsonb(?))`,
		g.ID, string(g.Status), g.SeasonID, g.CreatedAt, g.FinishedAt, string(data),
	)
	return err
}

func (s *DocStore) GetGame(ctx context.Context, id string) (gameDoc, error) {
	var g gameDoc
	err := s.get(ctx, "games", id, &g)
	return g, err
}

// QueryGames returns matching games, newest first (finished games by
// finish time, ongoing ones by creation time).
func (s *DocStore) QueryGames(ctx context.Context, q GameQuery) ([]gameDoc, error) {
	query := `SELECT json(data) FROM games`
	var conds []string
	var args []any
	if q.Status != "" {
		conds = append(conds, `status = ?`)
		args = append(args, string(q.Status))
	}
	if q.SeasonID != "" {
		conds = append(conds, `season_id = ?`)
		args = append(args, q.SeasonID)
	}
	if q.PlayerID != "" {
		conds = append(conds, `EXISTS (
			SELECT 1 FROM json_each(games.data, '$.players') WHERE json_each.value = ?
		)`)
		args = append(args, q.PlayerID)
	}
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, ` AND `)
	}
	query += ` ORDER BY COALESCE(finished_at, created_at) DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var games []gameDoc
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		var g gameDoc
		if err := json.Unmarshal([]byte(data), &g); err != nil {
			return nil, err
		}
		games = append(games, g)
	}
	return games, rows.Err()
}

// modifyGame loads a game, applies fn, and saves it in a transaction.
// This is the persistence-level serialization point for per-game writes.
func (s *DocStore) modifyGame(ctx context.Context, gameID string, fn func(*gameDoc) error) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var data string
	err = tx.QueryRowContext(ctx,
		`SELECT json(data) FROM games WHERE id = ?`, gameID,
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}

	var g gameDoc
	if err := json.Unmarshal([]byte(data), &g); err != nil {
		return err
	}

	if err := fn(&g); err != nil {
		return err
	}

	jsonData, err := json.Marshal(g)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx,
		`UPDATE games SET status = ?, season_id = NULLIF(?, ''), finished_at = ?, data = jsonb(?) WHERE id = ?`,
		string(g.Status), g.SeasonID, g.FinishedAt, string(jsonData), g.ID,
	)
	if err != nil {
		return err
	}

	return tx.Commit()
}

func (s *DocStore) WriteGameTotals(ctx context.Context, gameID string, totals napoleon.ScoreMap) error {
	return s.modifyGame(ctx, gameID, func(g *gameDoc) error {
		g.Scores = totals
		return nil
	})
}

func (s *DocStore) IncrementGameTotals(ctx context.Context, gameID string, delta napoleon.ScoreMap) error {
	return s.modifyGame(ctx, gameID, func(g *gameDoc) error {
		if g.Scores == nil {
			g.Scores = napoleon.ScoreMap{}
		}
		for id, v := range delta {
			g.Scores[id] += v
		}
		return nil
	})
}

func (s *DocStore) SetGameStatus(ctx context.Context, gameID string, status napoleon.GameStatus, finishedAt *string) error {
	return s.modifyGame(ctx, gameID, func(g *gameDoc) error {
		g.Status = status
		g.FinishedAt = finishedAt
		return nil
	})
}

func (s *DocStore) SetGameStake(ctx context.Context, gameID string, stake float64) error {
	return s.modifyGame(ctx, gameID, func(g *gameDoc) error {
		g.StakeMultiplier = stake
		return nil
	})
}

// DeleteGame removes the game and its round history in one transaction.
// Rounds cannot outlive their game.
func (s *DocStore) DeleteGame(ctx context.Context, gameID string) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM rounds WHERE game_id = ?`, gameID); err != nil {
		return err
	}
	result, err := tx.ExecContext(ctx, `DELETE FROM games WHERE id = ?`, gameID)
	if err != nil {
		return err
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return ErrNotFound
	}
	return tx.Commit()
}

// Rounds

func (s *DocStore) ListRounds(ctx context.Context, gameID string) ([]roundDoc, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT json(data) FROM rounds WHERE game_id = ? ORDER BY created_at, id`,
		gameID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rounds []roundDoc
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		var r roundDoc
		if err := json.Unmarshal([]byte(data), &r); err != nil {
			return nil, err
		}
		rounds = append(rounds, r)
	}
	return rounds, rows.Err()
}

func (s *DocStore) AppendRound(ctx context.Context, gameID string, r roundDoc) error {
	data, err := json.Marshal(r)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO rounds (id, game_id, created_at, data) VALUES (?, ?, ?, jsonb(?))`,
		r.ID, gameID, r.CreatedAt, string(data),
	)
	return err
}

func (s *DocStore) ReplaceRound(ctx context.Context, gameID, roundID string, r roundDoc) error {
	data, err := json.Marshal(r)
	if err != nil {
		return err
	}
	result, err := s.db.ExecContext(ctx,
		`UPDATE rounds SET created_at = ?, data = jsonb(?) WHERE id = ? AND game_id = ?`,
		r.CreatedAt, string(data), roundID, gameID,
	)
	if err != nil {
		return err
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *DocStore) DeleteRound(ctx context.Context, gameID, roundID string) error {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM rounds WHERE id = ? AND game_id = ?`, roundID, gameID,
	)
	if err != nil {
		return err
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Seasons

func (s *DocStore) PutSeason(ctx context.Context, sn seasonDoc) error {
	data, err := json.Marshal(sn)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO seasons (id, is_active, created_at, data) VALUES (?, ?, ?, jsonb(?))
		 ON CONFLICT(id) DO UPDATE SET is_active = excluded.is_active, data = excluded.data`,
		sn.ID, boolInt(sn.IsActive), sn.CreatedAt, string(data),
	)
	return err
}

func (s *DocStore) GetSeason(ctx context.Context, id string) (seasonDoc, error) {
	var sn seasonDoc
	err := s.get(ctx, "seasons", id, &sn)
	return sn, err
}

func (s *DocStore) ListSeasons(ctx context.Context) ([]seasonDoc, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT json(data) FROM seasons ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var seasons []seasonDoc
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		var sn seasonDoc
		if err := json.Unmarshal([]byte(data), &sn); err != nil {
			return nil, err
		}
		seasons = append(seasons, sn)
	}
	return seasons, rows.Err()
}

func (s *DocStore) ActiveSeason(ctx context.Context) (seasonDoc, error) {
	var data string
	err := s.db.QueryRowContext(ctx,
		`SELECT json(data) FROM seasons WHERE is_active = 1 LIMIT 1`,
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return seasonDoc{}, ErrNotFound
	}
	if err != nil {
		return seasonDoc{}, err
	}
	var sn seasonDoc
	if err := json.Unmarshal([]byte(data), &sn); err != nil {
		return seasonDoc{}, err
	}
	return sn, nil
}

// EndActiveSeasons deactivates every active season. Normally there is at
// most one; sweeping all of them keeps the exactly-one-active invariant
// self-healing.
func (s *DocStore) EndActiveSeasons(ctx context.Context, endDate string) error {
	active, err := s.listActiveSeasons(ctx)
	if err != nil {
		return err
	}
	for _, sn := range active {
		sn.IsActive = false
		sn.EndDate = &endDate
		if err := s.PutSeason(ctx, sn); err != nil {
			return err
		}
	}
	return nil
}

func (s *DocStore) listActiveSeasons(ctx context.Context) ([]seasonDoc, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT json(data) FROM seasons WHERE is_active = 1`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var seasons []seasonDoc
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		var sn seasonDoc
		if err := json.Unmarshal([]byte(data), &sn); err != nil {
			return nil, err
		}
		seasons = append(seasons, sn)
	}
	return seasons, rows.Err()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
