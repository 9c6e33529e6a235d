package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/kiliankoe/animebingo/internal/game"
)

// gameRecord stores the whole game as one JSONB document. The scalar columns duplicate
// document fields for listing and inspection.
type gameRecord struct {
	ID           string         `gorm:"primaryKey"`
	Name         string         `gorm:"not null"`
	GameMode     string         `gorm:"not null"`
	CurrentPhase string         `gorm:"not null"`
	CreatedBy    string         `gorm:"not null"`
	Document     datatypes.JSON `gorm:"type:jsonb;not null"`
	Version      int64          `gorm:"not null"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (gameRecord) TableName() string { return "games" }

type userStateRecord struct {
	UserID       string  `gorm:"primaryKey"`
	ActiveGameID *string `gorm:"column:active_game_id"`
	UpdatedAt    time.Time
}

func (userStateRecord) TableName() string { return "user_states" }

// Postgres is the durable game.Store.
type Postgres struct {
	db *gorm.DB
}

func NewPostgres(db *gorm.DB) *Postgres {
	return &Postgres{db: db}
}

func toRecord(g *game.Game) (gameRecord, error) {
	doc, err := json.Marshal(g)
	if err != nil {
		return gameRecord{}, fmt.Errorf("encode game %s: %w", g.ID, err)
	}
	return gameRecord{
		ID:           g.ID,
		Name:         g.Name,
		GameMode:     string(g.GameMode),
		CurrentPhase: string(g.CurrentPhase),
		CreatedBy:    g.CreatedBy,
		Document:     datatypes.JSON(doc),
		Version:      g.Version,
		CreatedAt:    g.CreatedAt,
	}, nil
}

func fromRecord(r gameRecord) (*game.Game, error) {
	var g game.Game
	if err := json.Unmarshal(r.Document, &g); err != nil {
		return nil, fmt.Errorf("decode game %s: %w", r.ID, err)
	}
	g.ID = r.ID
	g.Version = r.Version
	return &g, nil
}

func mapErr(err error, id string) error {
	var pgErr *pgconn.PgError
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("%w: %s", game.ErrGameNotFound, id)
	case errors.As(err, &pgErr) && pgErr.Code == "23505":
		return fmt.Errorf("%w: %s", game.ErrVersionConflict, id)
	}
	return err
}

func (s *Postgres) ListGames(ctx context.Context) ([]*game.Game, error) {
	var recs []gameRecord
	if err := s.db.WithContext(ctx).Order("created_at DESC").Find(&recs).Error; err != nil {
		return nil, err
	}
	out := make([]*game.Game, 0, len(recs))
	for _, r := range recs {
		g, err := fromRecord(r)
		if err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, nil
}

func (s *Postgres) GetGame(ctx context.Context, id string) (*game.Game, error) {
	var r gameRecord
	if err := s.db.WithContext(ctx).First(&r, "id = ?", id).Error; err != nil {
		return nil, mapErr(err, id)
	}
	return fromRecord(r)
}

func (s *Postgres) CreateGame(ctx context.Context, g *game.Game) error {
	if g.ID == "" {
		g.ID = uuid.NewString()
	}
	g.Version = 1
	r, err := toRecord(g)
	if err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Create(&r).Error; err != nil {
		return mapErr(err, g.ID)
	}
	return nil
}

func (s *Postgres) SaveGame(ctx context.Context, g *game.Game) error {
	expected := g.Version
	g.Version++
	r, err := toRecord(g)
	if err != nil {
		g.Version = expected
		return err
	}
	res := s.db.WithContext(ctx).Model(&gameRecord{}).
		Where("id = ? AND version = ?", g.ID, expected).
		Updates(map[string]any{
			"name":          r.Name,
			"current_phase": r.CurrentPhase,
			"created_by":    r.CreatedBy,
			"document":      r.Document,
			"version":       r.Version,
			"updated_at":    time.Now().UTC(),
		})
	if res.Error != nil {
		g.Version = expected
		return mapErr(res.Error, g.ID)
	}
	if res.RowsAffected == 0 {
		g.Version = expected
		var n int64
		if err := s.db.WithContext(ctx).Model(&gameRecord{}).Where("id = ?", g.ID).Count(&n).Error; err != nil {
			return err
		}
		if n == 0 {
			return fmt.Errorf("%w: %s", game.ErrGameNotFound, g.ID)
		}
		return fmt.Errorf("%w: %s", game.ErrVersionConflict, g.ID)
	}
	return nil
}

// UpsertGame overwrites the game and bumps the stored version past whatever was there.
func (s *Postgres) UpsertGame(ctx context.Context, g *game.Game) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var cur gameRecord
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Select("version").First(&cur, "id = ?", g.ID).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			g.Version = 1
		case err != nil:
			return err
		default:
			g.Version = cur.Version + 1
		}
		r, err := toRecord(g)
		if err != nil {
			return err
		}
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			UpdateAll: true,
		}).Create(&r).Error
	})
}

func (s *Postgres) DeleteGame(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Delete(&gameRecord{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: %s", game.ErrGameNotFound, id)
	}
	return nil
}

func (s *Postgres) GetUserState(ctx context.Context, userID string) (game.UserState, error) {
	var r userStateRecord
	err := s.db.WithContext(ctx).First(&r, "user_id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return game.UserState{UserID: userID}, nil
	}
	if err != nil {
		return game.UserState{}, err
	}
	st := game.UserState{UserID: r.UserID}
	if r.ActiveGameID != nil {
		st.ActiveGameID = *r.ActiveGameID
	}
	return st, nil
}

func (s *Postgres) SetUserState(ctx context.Context, st game.UserState) error {
	r := userStateRecord{UserID: st.UserID, UpdatedAt: time.Now().UTC()}
	if st.ActiveGameID != "" {
		r.ActiveGameID = &st.ActiveGameID
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"active_game_id", "updated_at"}),
	}).Create(&r).Error
}

func (s *Postgres) ClearActiveGame(ctx context.Context, gameID string) error {
	return s.db.WithContext(ctx).Model(&userStateRecord{}).
		Where("active_game_id = ?", gameID).
		Updates(map[string]any{"active_game_id": nil, "updated_at": time.Now().UTC()}).Error
}
