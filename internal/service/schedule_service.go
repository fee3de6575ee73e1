package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/Bintou284/gestion-ecole-en-ligne-sub001/internal/domain"
	"github.com/Bintou284/gestion-ecole-en-ligne-sub001/internal/repository/ports"
)

const (
	scheduleRedirect      = "/schedule"
	defaultScheduleWindow = 14 * 24 * time.Hour
	scheduleTimeLayout    = "02/01/2006 15:04"
)

type ScheduleInput struct {
	CourseID int64
	StartsAt time.Time
	EndsAt   time.Time
	Room     *string
}

type ScheduleService struct {
	schedules ports.ScheduleRepository
	courses   ports.CourseRepository
	profiles  ports.StudentProfileRepository
	users     ports.UserRepository
	notifier  Notifier
	now       func() time.Time
	log       zerolog.Logger
}

func NewScheduleService(schedules ports.ScheduleRepository, courses ports.CourseRepository, profiles ports.StudentProfileRepository, users ports.UserRepository, notifier Notifier, log zerolog.Logger) *ScheduleService {
	return &ScheduleService{
		schedules: schedules,
		courses:   courses,
		profiles:  profiles,
		users:     users,
		notifier:  notifier,
		now:       time.Now,
		log:       log.With().Str("component", "schedules").Logger(),
	}
}

func (s *ScheduleService) Create(ctx context.Context, principal domain.Principal, input ScheduleInput) (*domain.Schedule, error) {
	course, err := s.authorize(ctx, principal, input.CourseID)
	if err != nil {
		return nil, err
	}
	if err := validateSlot(input.StartsAt, input.EndsAt); err != nil {
		return nil, err
	}
	schedule, err := s.schedules.Create(ctx, &domain.Schedule{
		CourseID: input.CourseID,
		StartsAt: input.StartsAt.UTC(),
		EndsAt:   input.EndsAt.UTC(),
		Room:     trimmedPtr(input.Room),
	})
	if err != nil {
		return nil, err
	}
	s.announce(ctx, course, fmt.Sprintf("Nouvelle séance de %s le %s.", course.Title, schedule.StartsAt.Format(scheduleTimeLayout)))
	return schedule, nil
}

func (s *ScheduleService) Update(ctx context.Context, principal domain.Principal, id int64, input ScheduleInput) (*domain.Schedule, error) {
	existing, err := s.schedules.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err)
	}
	if input.CourseID == 0 {
		input.CourseID = existing.CourseID
	}
	course, err := s.authorize(ctx, principal, existing.CourseID)
	if err != nil {
		return nil, err
	}
	if input.CourseID != existing.CourseID {
		if course, err = s.authorize(ctx, principal, input.CourseID); err != nil {
			return nil, err
		}
	}
	if err := validateSlot(input.StartsAt, input.EndsAt); err != nil {
		return nil, err
	}
	existing.CourseID = input.CourseID
	existing.StartsAt = input.StartsAt.UTC()
	existing.EndsAt = input.EndsAt.UTC()
	existing.Room = trimmedPtr(input.Room)
	updated, err := s.schedules.Update(ctx, existing)
	if err != nil {
		return nil, notFound(err)
	}
	s.announce(ctx, course, fmt.Sprintf("La séance de %s a été modifiée : %s.", course.Title, updated.StartsAt.Format(scheduleTimeLayout)))
	return updated, nil
}

func (s *ScheduleService) Delete(ctx context.Context, principal domain.Principal, id int64) error {
	existing, err := s.schedules.FindByID(ctx, id)
	if err != nil {
		return notFound(err)
	}
	course, err := s.authorize(ctx, principal, existing.CourseID)
	if err != nil {
		return err
	}
	if err := s.schedules.Delete(ctx, id); err != nil {
		return notFound(err)
	}
	s.announce(ctx, course, fmt.Sprintf("La séance de %s du %s est annulée.", course.Title, existing.StartsAt.Format(scheduleTimeLayout)))
	return nil
}

// ListByFormation defaults to the next two weeks when the window is empty.
func (s *ScheduleService) ListByFormation(ctx context.Context, formationID int64, window domain.ScheduleWindow) ([]domain.Schedule, error) {
	window = s.normalizeWindow(window)
	if !window.To.After(window.From) {
		return nil, fmt.Errorf("%w: window end must be after its start", ErrValidation)
	}
	return s.schedules.ListByFormation(ctx, formationID, window)
}

// ListForStudent resolves the student's formation from their profile.
func (s *ScheduleService) ListForStudent(ctx context.Context, studentID int64, window domain.ScheduleWindow) ([]domain.Schedule, error) {
	profile, err := s.profiles.Get(ctx, studentID)
	if err != nil {
		return nil, notFound(err)
	}
	if profile.FormationID == nil {
		return []domain.Schedule{}, nil
	}
	return s.ListByFormation(ctx, *profile.FormationID, window)
}

func (s *ScheduleService) authorize(ctx context.Context, principal domain.Principal, courseID int64) (*domain.Course, error) {
	course, err := s.courses.FindByID(ctx, courseID)
	if err != nil {
		return nil, notFound(err)
	}
	if principal.IsAdmin() || (principal.Role == domain.RoleTeacher && course.TaughtBy(principal.UserID)) {
		return course, nil
	}
	return nil, ErrForbidden
}

func (s *ScheduleService) announce(ctx context.Context, course *domain.Course, message string) {
	if s.notifier == nil {
		return
	}
	students, err := s.users.ListStudentIDsByFormation(ctx, course.FormationID)
	if err != nil {
		s.log.Warn().Err(err).Int64("formation_id", course.FormationID).Msg("list students for schedule notice failed")
		return
	}
	s.notifier.NotifyUsers(ctx, students, strings.TrimSpace(message), scheduleRedirect)
}

func (s *ScheduleService) normalizeWindow(window domain.ScheduleWindow) domain.ScheduleWindow {
	if window.From.IsZero() {
		window.From = s.now().UTC()
	}
	if window.To.IsZero() {
		window.To = window.From.Add(defaultScheduleWindow)
	}
	return window
}

func validateSlot(startsAt, endsAt time.Time) error {
	if startsAt.IsZero() || endsAt.IsZero() {
		return fmt.Errorf("%w: start and end are required", ErrValidation)
	}
	if !endsAt.After(startsAt) {
		return fmt.Errorf("%w: session must end after it starts", ErrValidation)
	}
	return nil
}
