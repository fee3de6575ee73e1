package postgres

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/Bintou284/gestion-ecole-en-ligne-sub001/internal/domain"
	"github.com/Bintou284/gestion-ecole-en-ligne-sub001/internal/repository/ports"
)

type FormationRepository struct {
	db *sqlx.DB
}

func NewFormationRepo(db *sqlx.DB) *FormationRepository {
	return &FormationRepository{db: db}
}

var _ ports.FormationRepository = (*FormationRepository)(nil)

func (r *FormationRepository) Create(ctx context.Context, name string, description *string) (*domain.Formation, error) {
	const query = `
		INSERT INTO formations (name, description)
		VALUES ($1, $2)
		RETURNING id, name, description, created_at, updated_at
	`
	var f domain.Formation
	if err := r.db.GetContext(ctx, &f, query, name, description); err != nil {
		return nil, err
	}
	return &f, nil
}

func (r *FormationRepository) FindByID(ctx context.Context, id int64) (*domain.Formation, error) {
	var f domain.Formation
	if err := r.db.GetContext(ctx, &f, `SELECT id, name, description, created_at, updated_at FROM formations WHERE id = $1`, id); err != nil {
		return nil, err
	}
	return &f, nil
}

func (r *FormationRepository) List(ctx context.Context, limit, offset int) ([]domain.Formation, error) {
	const query = `
		SELECT id, name, description, created_at, updated_at
		FROM formations
		ORDER BY name ASC, id ASC
		LIMIT $1 OFFSET $2
	`
	items := []domain.Formation{}
	if err := r.db.SelectContext(ctx, &items, query, limit, offset); err != nil {
		return nil, err
	}
	return items, nil
}

type CourseRepository struct {
	db *sqlx.DB
}

func NewCourseRepo(db *sqlx.DB) *CourseRepository {
	return &CourseRepository{db: db}
}

var _ ports.CourseRepository = (*CourseRepository)(nil)

const courseColumns = `id, formation_id, teacher_id, title, description, created_at, updated_at`

func (r *CourseRepository) Create(ctx context.Context, course *domain.Course) (*domain.Course, error) {
	query := `
		INSERT INTO courses (formation_id, teacher_id, title, description)
		VALUES ($1, $2, $3, $4)
		RETURNING ` + courseColumns
	var c domain.Course
	if err := r.db.GetContext(ctx, &c, query, course.FormationID, course.TeacherID, course.Title, course.Description); err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *CourseRepository) FindByID(ctx context.Context, id int64) (*domain.Course, error) {
	var c domain.Course
	if err := r.db.GetContext(ctx, &c, `SELECT `+courseColumns+` FROM courses WHERE id = $1`, id); err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *CourseRepository) ListByFormation(ctx context.Context, formationID int64) ([]domain.Course, error) {
	items := []domain.Course{}
	query := `SELECT ` + courseColumns + ` FROM courses WHERE formation_id = $1 ORDER BY title ASC, id ASC`
	if err := r.db.SelectContext(ctx, &items, query, formationID); err != nil {
		return nil, err
	}
	return items, nil
}

func (r *CourseRepository) AssignTeacher(ctx context.Context, courseID int64, teacherID *int64) (*domain.Course, error) {
	query := `
		UPDATE courses
		SET teacher_id = $2,
		    updated_at = NOW()
		WHERE id = $1
		RETURNING ` + courseColumns
	var c domain.Course
	if err := r.db.GetContext(ctx, &c, query, courseID, teacherID); err != nil {
		return nil, err
	}
	return &c, nil
}
