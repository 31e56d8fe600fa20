package repository

import (
	"context"
	"database/sql"

	"github.com/coursehub/purchase-service/common/errors"
	"github.com/coursehub/purchase-service/services/purchase/internal/domain"
)

// CourseCatalog 강의 카탈로그 조회 인터페이스 (존재 여부와 기준 가격만 제공)
type CourseCatalog interface {
	FindByID(ctx context.Context, courseID string) (*domain.Course, error)
}

// UserDirectory 사용자 디렉토리 조회 인터페이스
type UserDirectory interface {
	Exists(ctx context.Context, userID string) (bool, error)
}

type courseCatalog struct {
	db *sql.DB
}

// NewCourseCatalog 강의 카탈로그 생성
func NewCourseCatalog(db *sql.DB) CourseCatalog {
	return &courseCatalog{db: db}
}

// FindByID ID로 강의 조회
func (c *courseCatalog) FindByID(ctx context.Context, courseID string) (*domain.Course, error) {
	query := `
		SELECT id, title, base_price_currency, base_price_amount, published
		FROM courses
		WHERE id = $1
	`

	course := &domain.Course{}
	err := c.db.QueryRowContext(ctx, query, courseID).Scan(
		&course.ID,
		&course.Title,
		&course.BasePrice.Currency,
		&course.BasePrice.Amount,
		&course.Published,
	)

	if err == sql.ErrNoRows {
		return nil, errors.Newf(errors.ErrCodeCourseNotFound, "course not found: %s", courseID)
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStoreUnavailable, "failed to find course", err)
	}

	return course, nil
}

type userDirectory struct {
	db *sql.DB
}

// NewUserDirectory 사용자 디렉토리 생성
func NewUserDirectory(db *sql.DB) UserDirectory {
	return &userDirectory{db: db}
}

// Exists 사용자 존재 여부 확인
func (u *userDirectory) Exists(ctx context.Context, userID string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM users WHERE id = $1)`

	var exists bool
	if err := u.db.QueryRowContext(ctx, query, userID).Scan(&exists); err != nil {
		return false, errors.Wrap(errors.ErrCodeStoreUnavailable, "failed to check user", err)
	}

	return exists, nil
}
