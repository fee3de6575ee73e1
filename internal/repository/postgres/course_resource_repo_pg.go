package postgres

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/Bintou284/gestion-ecole-en-ligne-sub001/internal/domain"
	"github.com/Bintou284/gestion-ecole-en-ligne-sub001/internal/repository/ports"
)

const resourceColumns = `id, course_id, uploaded_by, title, file_name, object_key, url, content_type,
		size_bytes, status, reviewed_by, reviewed_at, reject_reason, created_at, updated_at`

type CourseResourceRepository struct {
	db *sqlx.DB
}

func NewCourseResourceRepo(db *sqlx.DB) *CourseResourceRepository {
	return &CourseResourceRepository{db: db}
}

var _ ports.CourseResourceRepository = (*CourseResourceRepository)(nil)

func (r *CourseResourceRepository) Create(ctx context.Context, res *domain.CourseResource) (*domain.CourseResource, error) {
	query := `
		INSERT INTO course_resources (course_id, uploaded_by, title, file_name, object_key, url, content_type, size_bytes, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 'pending')
		RETURNING ` + resourceColumns
	var created domain.CourseResource
	err := r.db.GetContext(ctx, &created, query,
		res.CourseID, res.UploadedBy, res.Title, res.FileName, res.ObjectKey, res.URL, res.ContentType, res.SizeBytes)
	if err != nil {
		return nil, err
	}
	return &created, nil
}

func (r *CourseResourceRepository) FindByID(ctx context.Context, id int64) (*domain.CourseResource, error) {
	var res domain.CourseResource
	if err := r.db.GetContext(ctx, &res, `SELECT `+resourceColumns+` FROM course_resources WHERE id = $1`, id); err != nil {
		return nil, err
	}
	return &res, nil
}

func (r *CourseResourceRepository) ListByCourse(ctx context.Context, courseID int64, status *domain.ResourceStatus) ([]domain.CourseResource, error) {
	query := `
		SELECT ` + resourceColumns + `
		FROM course_resources
		WHERE course_id = $1 AND ($2::text IS NULL OR status = $2)
		ORDER BY created_at DESC, id DESC
	`
	var statusArg *string
	if status != nil {
		v := string(*status)
		statusArg = &v
	}
	items := []domain.CourseResource{}
	if err := r.db.SelectContext(ctx, &items, query, courseID, statusArg); err != nil {
		return nil, err
	}
	return items, nil
}

func (r *CourseResourceRepository) Review(ctx context.Context, id int64, status domain.ResourceStatus, reviewerID int64, reason *string) (*domain.CourseResource, error) {
	query := `
		UPDATE course_resources
		SET status = $2,
		    reviewed_by = $3,
		    reviewed_at = NOW(),
		    reject_reason = $4,
		    updated_at = NOW()
		WHERE id = $1 AND status = 'pending'
		RETURNING ` + resourceColumns
	var res domain.CourseResource
	if err := r.db.GetContext(ctx, &res, query, id, status, reviewerID, reason); err != nil {
		return nil, err
	}
	return &res, nil
}
