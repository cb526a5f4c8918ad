package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/askielabs/askie-api/internal/models"
)

type SessionRepository interface {
	Insert(session *models.HomeworkSession) (*models.HomeworkSession, error)
	GetAllByUserID(userID string, limit, offset int) ([]models.HomeworkSession, bool, error)
}

type SessionRepositoryImpl struct {
	db *sqlx.DB
}

func NewSessionRepository(db *sqlx.DB) SessionRepository {
	return &SessionRepositoryImpl{db: db}
}

func (repo *SessionRepositoryImpl) Insert(session *models.HomeworkSession) (*models.HomeworkSession, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	var inserted models.HomeworkSession

	query := `
		INSERT INTO homework_sessions (user_id, question, tier, answer_ref, stars_earned, cost, image_ref)
		VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''))
		RETURNING id, user_id, question, tier, answer_ref, stars_earned, cost, image_ref, created_at`

	err := repo.db.QueryRowxContext(ctx, query,
		session.UserID,
		session.Question,
		session.Tier,
		session.AnswerRef,
		session.StarsEarned,
		session.Cost,
		session.ImageRef.String,
	).StructScan(&inserted)
	if err != nil {
		return nil, err
	}

	return &inserted, nil
}

func (repo *SessionRepositoryImpl) GetAllByUserID(userID string, limit, offset int) ([]models.HomeworkSession, bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	if limit <= 0 {
		limit = 10
	}

	var sessions []models.HomeworkSession

	query := `
		SELECT id, user_id, question, tier, answer_ref, stars_earned, cost, image_ref, created_at
		FROM homework_sessions
		WHERE user_id=$1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`

	err := repo.db.SelectContext(ctx, &sessions, query, userID, limit, offset)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, err
	}

	return sessions, len(sessions) > 0, nil
}
