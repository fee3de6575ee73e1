package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Bintou284/gestion-ecole-en-ligne-sub001/internal/domain"
	"github.com/Bintou284/gestion-ecole-en-ligne-sub001/internal/media"
	"github.com/Bintou284/gestion-ecole-en-ligne-sub001/internal/repository/ports"
)

const (
	defaultResourceMaxBytes = 20 << 20
	defaultFormationPage    = 50
)

type CourseConfig struct {
	ResourceBucket   string
	ResourceMaxBytes int64
}

type CourseService struct {
	formations ports.FormationRepository
	courses    ports.CourseRepository
	resources  ports.CourseResourceRepository
	users      ports.UserRepository
	storage    ports.ObjectStorage
	notifier   Notifier
	bucket     string
	maxBytes   int64
	log        zerolog.Logger
}

type NewCourseInput struct {
	FormationID int64
	TeacherID   *int64
	Title       string
	Description *string
}

type ResourceUpload struct {
	Title       string
	FileName    string
	ContentType string
	Size        int64
	Reader      io.Reader
}

func NewCourseService(
	formations ports.FormationRepository,
	courses ports.CourseRepository,
	resources ports.CourseResourceRepository,
	users ports.UserRepository,
	storage ports.ObjectStorage,
	notifier Notifier,
	cfg CourseConfig,
	log zerolog.Logger,
) *CourseService {
	if cfg.ResourceMaxBytes <= 0 {
		cfg.ResourceMaxBytes = defaultResourceMaxBytes
	}
	return &CourseService{
		formations: formations,
		courses:    courses,
		resources:  resources,
		users:      users,
		storage:    storage,
		notifier:   notifier,
		bucket:     cfg.ResourceBucket,
		maxBytes:   cfg.ResourceMaxBytes,
		log:        log.With().Str("component", "courses").Logger(),
	}
}

func (s *CourseService) CreateFormation(ctx context.Context, name string, description *string) (*domain.Formation, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: formation name is required", ErrValidation)
	}
	formation, err := s.formations.Create(ctx, name, trimmedPtr(description))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: formation %q already exists", ErrConflict, name)
		}
		return nil, err
	}
	return formation, nil
}

func (s *CourseService) ListFormations(ctx context.Context, limit, offset int) ([]domain.Formation, error) {
	if limit <= 0 {
		limit = defaultFormationPage
	}
	if offset < 0 {
		offset = 0
	}
	return s.formations.List(ctx, limit, offset)
}

func (s *CourseService) GetFormation(ctx context.Context, id int64) (*domain.Formation, error) {
	formation, err := s.formations.FindByID(ctx, id)
	return formation, notFound(err)
}

func (s *CourseService) CreateCourse(ctx context.Context, input NewCourseInput) (*domain.Course, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, fmt.Errorf("%w: course title is required", ErrValidation)
	}
	if _, err := s.GetFormation(ctx, input.FormationID); err != nil {
		return nil, err
	}
	if input.TeacherID != nil {
		if err := s.requireTeacher(ctx, *input.TeacherID); err != nil {
			return nil, err
		}
	}
	return s.courses.Create(ctx, &domain.Course{
		FormationID: input.FormationID,
		TeacherID:   input.TeacherID,
		Title:       title,
		Description: trimmedPtr(input.Description),
	})
}

func (s *CourseService) ListCourses(ctx context.Context, formationID int64) ([]domain.Course, error) {
	return s.courses.ListByFormation(ctx, formationID)
}

func (s *CourseService) GetCourse(ctx context.Context, id int64) (*domain.Course, error) {
	course, err := s.courses.FindByID(ctx, id)
	return course, notFound(err)
}

// AssignTeacher sets or clears (nil) the course's teacher.
func (s *CourseService) AssignTeacher(ctx context.Context, courseID int64, teacherID *int64) (*domain.Course, error) {
	if teacherID != nil {
		if err := s.requireTeacher(ctx, *teacherID); err != nil {
			return nil, err
		}
	}
	course, err := s.courses.AssignTeacher(ctx, courseID, teacherID)
	return course, notFound(err)
}

// UploadResource stores the file and records it as pending; admins are told
// there is something to review.
func (s *CourseService) UploadResource(ctx context.Context, principal domain.Principal, courseID int64, upload ResourceUpload) (*domain.CourseResource, error) {
	course, err := s.GetCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}
	if !principal.IsAdmin() && !(principal.Role == domain.RoleTeacher && course.TaughtBy(principal.UserID)) {
		return nil, ErrForbidden
	}
	title := strings.TrimSpace(upload.Title)
	fileName := filepath.Base(strings.TrimSpace(upload.FileName))
	if title == "" {
		title = fileName
	}
	if upload.Reader == nil || upload.Size <= 0 || fileName == "." || fileName == "" {
		return nil, fmt.Errorf("%w: a file is required", ErrValidation)
	}
	if upload.Size > s.maxBytes {
		return nil, fmt.Errorf("%w: file exceeds %d bytes", ErrValidation, s.maxBytes)
	}
	if s.storage == nil {
		return nil, fmt.Errorf("%w: object storage not configured", ErrConfig)
	}

	contentType := media.NormalizeContentType(upload.ContentType, fileName)
	key := fmt.Sprintf("courses/%d/%s%s", courseID, uuid.NewString(), strings.ToLower(filepath.Ext(fileName)))
	url, err := s.storage.Upload(ctx, s.bucket, key, contentType, io.LimitReader(upload.Reader, upload.Size), upload.Size)
	if err != nil {
		return nil, fmt.Errorf("%w: upload resource: %v", ErrTransport, err)
	}

	resource, err := s.resources.Create(ctx, &domain.CourseResource{
		CourseID:    courseID,
		UploadedBy:  principal.UserID,
		Title:       title,
		FileName:    fileName,
		ObjectKey:   key,
		URL:         url,
		ContentType: contentType,
		SizeBytes:   upload.Size,
		Status:      domain.ResourceStatusPending,
	})
	if err != nil {
		if rmErr := s.storage.Remove(ctx, s.bucket, key); rmErr != nil {
			s.log.Warn().Err(rmErr).Str("object", key).Msg("remove orphaned resource object failed")
		}
		return nil, err
	}

	if s.notifier != nil {
		admins, err := s.users.ListIDsByRole(ctx, domain.RoleAdmin)
		if err != nil {
			s.log.Warn().Err(err).Int64("resource_id", resource.ID).Msg("list admins for review notice failed")
		} else {
			msg := fmt.Sprintf("Nouvelle ressource « %s » à valider pour le cours %s.", resource.Title, course.Title)
			s.notifier.NotifyUsers(ctx, admins, msg, fmt.Sprintf("/admin/resources/%d", resource.ID))
		}
	}
	return resource, nil
}

// ListResources hides unapproved resources from students.
func (s *CourseService) ListResources(ctx context.Context, principal domain.Principal, courseID int64) ([]domain.CourseResource, error) {
	if _, err := s.GetCourse(ctx, courseID); err != nil {
		return nil, err
	}
	var status *domain.ResourceStatus
	if principal.Role == domain.RoleStudent {
		approved := domain.ResourceStatusApproved
		status = &approved
	}
	return s.resources.ListByCourse(ctx, courseID, status)
}

func (s *CourseService) ApproveResource(ctx context.Context, reviewer domain.Principal, resourceID int64) (*domain.CourseResource, error) {
	resource, err := s.review(ctx, reviewer, resourceID, domain.ResourceStatusApproved, nil)
	if err != nil {
		return nil, err
	}
	if s.notifier == nil {
		return resource, nil
	}
	course, err := s.courses.FindByID(ctx, resource.CourseID)
	if err != nil {
		s.log.Warn().Err(err).Int64("resource_id", resource.ID).Msg("load course for approval notice failed")
		return resource, nil
	}
	link := fmt.Sprintf("/courses/%d", course.ID)
	s.notifier.SendEvent(ctx, domain.NotificationEvent{
		UserID:       resource.UploadedBy,
		Message:      fmt.Sprintf("Votre ressource « %s » a été approuvée.", resource.Title),
		RedirectLink: link,
	})
	students, err := s.users.ListStudentIDsByFormation(ctx, course.FormationID)
	if err != nil {
		s.log.Warn().Err(err).Int64("formation_id", course.FormationID).Msg("list students for approval notice failed")
		return resource, nil
	}
	s.notifier.NotifyUsers(ctx, students, fmt.Sprintf("Nouvelle ressource disponible dans %s : %s", course.Title, resource.Title), link)
	return resource, nil
}

func (s *CourseService) RejectResource(ctx context.Context, reviewer domain.Principal, resourceID int64, reason string) (*domain.CourseResource, error) {
	resource, err := s.review(ctx, reviewer, resourceID, domain.ResourceStatusRejected, trimmedPtr(&reason))
	if err != nil {
		return nil, err
	}
	if s.notifier != nil {
		msg := fmt.Sprintf("Votre ressource « %s » a été refusée.", resource.Title)
		if resource.RejectReason != nil {
			msg += " Motif : " + *resource.RejectReason
		}
		s.notifier.SendEvent(ctx, domain.NotificationEvent{
			UserID:       resource.UploadedBy,
			Message:      msg,
			RedirectLink: fmt.Sprintf("/courses/%d", resource.CourseID),
		})
	}
	return resource, nil
}

func (s *CourseService) review(ctx context.Context, reviewer domain.Principal, id int64, status domain.ResourceStatus, reason *string) (*domain.CourseResource, error) {
	if !reviewer.IsAdmin() {
		return nil, ErrForbidden
	}
	resource, err := s.resources.Review(ctx, id, status, reviewer.UserID, reason)
	if err == nil {
		s.log.Info().Int64("resource_id", id).Str("status", string(status)).Int64("reviewer_id", reviewer.UserID).Msg("resource reviewed")
		return resource, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	// Review only touches pending rows; tell missing apart from already reviewed.
	existing, findErr := s.resources.FindByID(ctx, id)
	if findErr != nil {
		return nil, notFound(findErr)
	}
	return nil, fmt.Errorf("%w: resource already %s", ErrConflict, existing.Status)
}

func (s *CourseService) requireTeacher(ctx context.Context, userID int64) error {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: teacher %d does not exist", ErrValidation, userID)
		}
		return err
	}
	if user.Role != domain.RoleTeacher {
		return fmt.Errorf("%w: user %d is not a teacher", ErrValidation, userID)
	}
	return nil
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

func trimmedPtr(value *string) *string {
	if value == nil {
		return nil
	}
	return stringPtr(strings.TrimSpace(*value))
}
