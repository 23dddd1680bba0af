package model

import "time"

// Enrollment links a student to a teacher. Students only see and attempt
// tests of teachers they are enrolled with.
type Enrollment struct {
	StudentID   int64     `json:"student_id"`
	TeacherID   int64     `json:"teacher_id"`
	TeacherName string    `json:"teacher_name,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// EnrollRequest is the payload for enrolling with a teacher by code.
type EnrollRequest struct {
	TeacherCode string `json:"teacher_code" binding:"required,len=4,numeric"`
}
