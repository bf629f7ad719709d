package models

import "time"

// UserStats aggregates user counts per role.
type UserStats struct {
	Total        int `db:"total" json:"total"`
	Admins       int `db:"admins" json:"admins"`
	Trainers     int `db:"trainers" json:"trainers"`
	Participants int `db:"participants" json:"participants"`
}

// CourseStats aggregates course counts per status.
type CourseStats struct {
	Total    int `db:"total" json:"total"`
	Active   int `db:"active" json:"active"`
	Finished int `db:"finished" json:"finished"`
}

// EnrollmentStats aggregates enrollment counts per status.
type EnrollmentStats struct {
	Total     int `db:"total" json:"total"`
	Active    int `db:"active" json:"active"`
	Cancelled int `db:"cancelled" json:"cancelled"`
}

// PlatformStats is the admin dashboard aggregate.
type PlatformStats struct {
	Users       UserStats       `json:"users"`
	Courses     CourseStats     `json:"courses"`
	Enrollments EnrollmentStats `json:"enrollments"`
	GeneratedAt time.Time       `json:"generatedAt"`
}
