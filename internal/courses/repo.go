package courses

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/kineticlab/physio-academy-backend/internal/access"
	"github.com/kineticlab/physio-academy-backend/internal/repo"
)

// Repository reads ordered course content joined with a user's progress.
type Repository interface {
	LessonsWithProgress(ctx context.Context, userID, courseID uuid.UUID) ([]access.Item, error)
	PackageCoursesWithEnrollment(ctx context.Context, userID, packageID uuid.UUID) ([]access.Item, error)
}

type repository struct {
	repo.Base
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{Base: repo.NewBase(db)}
}

type progressRow struct {
	ID          uuid.UUID
	Title       string
	Completed   bool
	CompletedAt *time.Time
}

func (r *repository) LessonsWithProgress(ctx context.Context, userID, courseID uuid.UUID) ([]access.Item, error) {
	var rows []progressRow
	err := r.DB(ctx).
		Table("lessons AS l").
		Select("l.id AS id, l.title AS title, COALESCE(lp.completed, false) AS completed, lp.completed_at AS completed_at").
		Joins("LEFT JOIN lesson_progress lp ON lp.lesson_id = l.id AND lp.user_id = ?", userID).
		Where("l.course_id = ?", courseID).
		Order("l.position ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return toItems(rows), nil
}

func (r *repository) PackageCoursesWithEnrollment(ctx context.Context, userID, packageID uuid.UUID) ([]access.Item, error) {
	var rows []progressRow
	err := r.DB(ctx).
		Table("package_courses AS pc").
		Select("pc.course_id AS id, pc.title AS title, COALESCE(ce.completed, false) AS completed, ce.completion_date AS completed_at").
		Joins("LEFT JOIN course_enrollments ce ON ce.course_id = pc.course_id AND ce.user_id = ?", userID).
		Where("pc.package_id = ?", packageID).
		Order("pc.position ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return toItems(rows), nil
}

func toItems(rows []progressRow) []access.Item {
	items := make([]access.Item, len(rows))
	for i, row := range rows {
		items[i] = access.Item{
			ID:          row.ID,
			Title:       row.Title,
			Completed:   row.Completed,
			CompletedAt: row.CompletedAt,
		}
	}
	return items
}
