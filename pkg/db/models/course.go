package models

import (
	"time"

	"github.com/google/uuid"
)

// Lesson is one ordered unit inside a course.
type Lesson struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey"`
	CourseID uuid.UUID `gorm:"column:course_id;type:uuid;not null;index"`
	Position int       `gorm:"column:position;not null"`
	Title    string    `gorm:"column:title;not null"`
}

// LessonProgress records a user's completion of a lesson.
type LessonProgress struct {
	UserID      uuid.UUID  `gorm:"column:user_id;type:uuid;primaryKey"`
	LessonID    uuid.UUID  `gorm:"column:lesson_id;type:uuid;primaryKey"`
	Completed   bool       `gorm:"column:completed;not null;default:false"`
	CompletedAt *time.Time `gorm:"column:completed_at"`
}

func (LessonProgress) TableName() string { return "lesson_progress" }

// PackageCourse places a course at a position inside a package.
type PackageCourse struct {
	PackageID uuid.UUID `gorm:"column:package_id;type:uuid;primaryKey"`
	CourseID  uuid.UUID `gorm:"column:course_id;type:uuid;primaryKey"`
	Position  int       `gorm:"column:position;not null"`
	Title     string    `gorm:"column:title;not null"`
}

// CourseEnrollment records a user's progress through a whole course.
type CourseEnrollment struct {
	UserID         uuid.UUID  `gorm:"column:user_id;type:uuid;primaryKey"`
	CourseID       uuid.UUID  `gorm:"column:course_id;type:uuid;primaryKey"`
	Completed      bool       `gorm:"column:completed;not null;default:false"`
	CompletionDate *time.Time `gorm:"column:completion_date"`
}
