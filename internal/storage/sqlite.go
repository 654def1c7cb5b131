package storage

import (
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/meur/steamtier/internal/models"
)

// sqlite's default SQLITE_MAX_VARIABLE_NUMBER is 999
const lookupChunk = 500

// Store handles all database operations
type Store struct {
	db *sql.DB
}

// New creates a new Store with SQLite
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return store, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the connection, used by the health endpoint
func (s *Store) Ping() error {
	return s.db.Ping()
}

// migrate runs database migrations
func (s *Store) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS games (
			id INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			image TEXT NOT NULL DEFAULT '',
			genre TEXT NOT NULL DEFAULT '',
			release_year INTEGER NOT NULL DEFAULT 0,
			playtime REAL,
			is_shared INTEGER,
			owner_id TEXT,
			last_played DATETIME,
			position INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_games_position ON games(position, id)`,
	}

	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}

	return nil
}

const gameColumns = `id, name, image, genre, release_year, playtime, is_shared, owner_id, last_played`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanGame(row rowScanner) (models.Game, error) {
	var (
		g          models.Game
		playtime   sql.NullFloat64
		isShared   sql.NullBool
		ownerID    sql.NullString
		lastPlayed sql.NullTime
	)
	err := row.Scan(&g.ID, &g.Name, &g.Image, &g.Genre, &g.ReleaseYear,
		&playtime, &isShared, &ownerID, &lastPlayed)
	if err != nil {
		return g, err
	}
	if playtime.Valid {
		g.Playtime = &playtime.Float64
	}
	if isShared.Valid {
		g.IsShared = &isShared.Bool
	}
	if ownerID.Valid {
		g.OwnerID = &ownerID.String
	}
	if lastPlayed.Valid {
		t := lastPlayed.Time.UTC()
		g.LastPlayed = &t
	}
	return g, nil
}

func gameArgs(g models.Game, position int) []any {
	var (
		playtime   sql.NullFloat64
		isShared   sql.NullBool
		ownerID    sql.NullString
		lastPlayed sql.NullTime
	)
	if g.Playtime != nil {
		playtime = sql.NullFloat64{Float64: *g.Playtime, Valid: true}
	}
	if g.IsShared != nil {
		isShared = sql.NullBool{Bool: *g.IsShared, Valid: true}
	}
	if g.OwnerID != nil {
		ownerID = sql.NullString{String: *g.OwnerID, Valid: true}
	}
	if g.LastPlayed != nil {
		lastPlayed = sql.NullTime{Time: g.LastPlayed.UTC(), Valid: true}
	}
	return []any{g.ID, g.Name, g.Image, g.Genre, g.ReleaseYear,
		playtime, isShared, ownerID, lastPlayed, position}
}

// --- Games ---

// GetGames returns the stored catalog in insertion order
func (s *Store) GetGames() (models.Catalog, error) {
	rows, err := s.db.Query(`SELECT ` + gameColumns + ` FROM games ORDER BY position, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	games := models.Catalog{}
	for rows.Next() {
		g, err := scanGame(rows)
		if err != nil {
			return nil, err
		}
		games = append(games, g)
	}
	return games, rows.Err()
}

// GetGame returns a game by appid, or nil when it is not stored
func (s *Store) GetGame(id int64) (*models.Game, error) {
	g, err := scanGame(s.db.QueryRow(`SELECT `+gameColumns+` FROM games WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &g, nil
}

// CreateGame appends a game to the catalog
func (s *Store) CreateGame(g *models.Game) error {
	var next int
	if err := s.db.QueryRow(`SELECT COALESCE(MAX(position), -1) + 1 FROM games`).Scan(&next); err != nil {
		return err
	}
	_, err := s.db.Exec(`
		INSERT INTO games (`+gameColumns+`, position)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, gameArgs(*g, next)...)
	return err
}

// BulkCreateGames upserts games in a transaction, keeping catalog order.
// Games already stored keep their position.
func (s *Store) BulkCreateGames(games models.Catalog) error {
	if err := games.Validate(); err != nil {
		return err
	}

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var next int
	if err := tx.QueryRow(`SELECT COALESCE(MAX(position), -1) + 1 FROM games`).Scan(&next); err != nil {
		return err
	}

	stmt, err := tx.Prepare(`
		INSERT INTO games (` + gameColumns + `, position)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			image = excluded.image,
			genre = excluded.genre,
			release_year = excluded.release_year,
			playtime = excluded.playtime,
			is_shared = excluded.is_shared,
			owner_id = excluded.owner_id,
			last_played = excluded.last_played
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, g := range games {
		if _, err := stmt.Exec(gameArgs(g, next+i)...); err != nil {
			return fmt.Errorf("game %d: %w", g.ID, err)
		}
	}

	return tx.Commit()
}

// DeleteGames removes games by appid and reports how many were stored
func (s *Store) DeleteGames(ids []int64) (int64, error) {
	var total int64
	for _, chunk := range chunkIDs(ids) {
		res, err := s.db.Exec(`DELETE FROM games WHERE id IN (`+placeholders(len(chunk))+`)`, idArgs(chunk)...)
		if err != nil {
			return total, err
		}
		n, _ := res.RowsAffected()
		total += n
	}
	return total, nil
}

// CountGames returns the catalog size
func (s *Store) CountGames() (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM games`).Scan(&n)
	return n, err
}

// LookupGames returns the stored games among ids, keyed by appid
func (s *Store) LookupGames(ids []int64) (map[int64]models.Game, error) {
	out := make(map[int64]models.Game, len(ids))
	for _, chunk := range chunkIDs(ids) {
		rows, err := s.db.Query(`SELECT `+gameColumns+` FROM games WHERE id IN (`+placeholders(len(chunk))+`)`, idArgs(chunk)...)
		if err != nil {
			return nil, err
		}
		for rows.Next() {
			g, err := scanGame(rows)
			if err != nil {
				rows.Close()
				return nil, err
			}
			out[g.ID] = g
		}
		err = rows.Err()
		rows.Close()
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

func chunkIDs(ids []int64) [][]int64 {
	var chunks [][]int64
	for len(ids) > 0 {
		n := min(len(ids), lookupChunk)
		chunks = append(chunks, ids[:n])
		ids = ids[n:]
	}
	return chunks
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func idArgs(ids []int64) []any {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return args
}
