package domain

import "time"

type ResourceStatus string

const (
	ResourceStatusPending  ResourceStatus = "pending"
	ResourceStatusApproved ResourceStatus = "approved"
	ResourceStatusRejected ResourceStatus = "rejected"
)

type CourseResource struct {
	ID           int64          `db:"id" json:"id"`
	CourseID     int64          `db:"course_id" json:"course_id"`
	UploadedBy   int64          `db:"uploaded_by" json:"uploaded_by"`
	Title        string         `db:"title" json:"title"`
	FileName     string         `db:"file_name" json:"file_name"`
	ObjectKey    string         `db:"object_key" json:"-"`
	URL          string         `db:"url" json:"url"`
	ContentType  string         `db:"content_type" json:"content_type"`
	SizeBytes    int64          `db:"size_bytes" json:"size_bytes"`
	Status       ResourceStatus `db:"status" json:"status"`
	ReviewedBy   *int64         `db:"reviewed_by" json:"reviewed_by,omitempty"`
	ReviewedAt   *time.Time     `db:"reviewed_at" json:"reviewed_at,omitempty"`
	RejectReason *string        `db:"reject_reason" json:"reject_reason,omitempty"`
	CreatedAt    time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at" json:"updated_at"`
}

func (r *CourseResource) IsPending() bool {
	return r != nil && r.Status == ResourceStatusPending
}
