// Package memory holds the fixed in-process datasets the storefront is built
// on: the seeded course catalog and the coupon table.
package memory

import (
	"context"
	"fmt"
	"strings"
	"sync"

	domain "github.com/skillforge/api/internal/domain"
	"github.com/skillforge/api/internal/repositories"
)

// CourseRepository serves the published course catalog from memory.
type CourseRepository struct {
	mu      sync.RWMutex
	courses []domain.Course
	byID    map[string]int
}

// NewCourseRepository builds a repository over the provided courses, falling
// back to the seeded catalog when none are given.
func NewCourseRepository(courses []domain.Course) *CourseRepository {
	if len(courses) == 0 {
		courses = SeedCourses()
	}
	byID := make(map[string]int, len(courses))
	for i, course := range courses {
		byID[course.ID] = i
	}
	return &CourseRepository{courses: courses, byID: byID}
}

// List returns the full catalog in its canonical ("best match") order.
func (r *CourseRepository) List(ctx context.Context) ([]domain.Course, error) {
	if err := ctx.Err(); err != nil {
		return nil, repositories.NewUnavailable("course repository", err)
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.Course, len(r.courses))
	copy(out, r.courses)
	return out, nil
}

// FindByID returns a single course.
func (r *CourseRepository) FindByID(ctx context.Context, courseID string) (domain.Course, error) {
	if err := ctx.Err(); err != nil {
		return domain.Course{}, repositories.NewUnavailable("course repository", err)
	}
	id := strings.TrimSpace(courseID)
	r.mu.RLock()
	defer r.mu.RUnlock()
	idx, ok := r.byID[id]
	if !ok {
		return domain.Course{}, repositories.NewNotFound(fmt.Sprintf("course repository: course %s", id), nil)
	}
	return r.courses[idx], nil
}
