package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/cases"

	domain "github.com/skillforge/api/internal/domain"
	"github.com/skillforge/api/internal/platform/pagination"
	"github.com/skillforge/api/internal/repositories"
)

var errCatalogRepositoryRequired = errors.New("catalog service: course repository is required")

// ErrCatalogInvalidInput indicates the caller supplied an unknown filter value.
var ErrCatalogInvalidInput = errors.New("catalog service: invalid input")

// ErrCatalogUnavailable indicates the catalog cannot be read.
var ErrCatalogUnavailable = errors.New("catalog service: unavailable")

// ErrCatalogCourseNotFound indicates the requested course is not published.
var ErrCatalogCourseNotFound = errors.New("catalog service: course not found")

// CatalogServiceDeps wires the catalog dependencies.
type CatalogServiceDeps struct {
	Repository repositories.CourseRepository
	Logger     func(context.Context, string, map[string]any)
}

type catalogService struct {
	repo   repositories.CourseRepository
	fold   cases.Caser
	logger func(context.Context, string, map[string]any)
}

// NewCatalogService constructs a CatalogService enforcing dependency validation.
func NewCatalogService(deps CatalogServiceDeps) (CatalogService, error) {
	if deps.Repository == nil {
		return nil, errCatalogRepositoryRequired
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	return &catalogService{
		repo:   deps.Repository,
		fold:   cases.Fold(),
		logger: logger,
	}, nil
}

// Search filters, sorts and paginates the catalog. Dimensions are ANDed
// together; selections within one dimension are ORed; an empty selection set
// leaves its dimension unfiltered. Sorting happens after filtering.
func (s *catalogService) Search(ctx context.Context, filter CatalogFilter) (CatalogPage, error) {
	normalized, err := normalizeFilter(filter)
	if err != nil {
		return CatalogPage{}, err
	}

	courses, err := s.repo.List(ctx)
	if err != nil {
		return CatalogPage{}, ErrCatalogUnavailable
	}

	matched := make([]Course, 0, len(courses))
	for _, course := range courses {
		if s.matches(course, normalized) {
			matched = append(matched, course)
		}
	}

	sortCourses(matched, normalized.SortBy)

	params := pagination.Params{Page: normalized.Page, PageSize: normalized.PageSize}
	start, end := params.Slice(len(matched))

	return CatalogPage{
		Courses:    matched[start:end],
		TotalCount: len(matched),
		Page:       normalized.Page,
		PageSize:   normalized.PageSize,
	}, nil
}

func (s *catalogService) FindCourse(ctx context.Context, courseID string) (Course, error) {
	id := strings.TrimSpace(courseID)
	if id == "" {
		return Course{}, ErrCatalogInvalidInput
	}
	course, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if isRepoNotFound(err) {
			return Course{}, ErrCatalogCourseNotFound
		}
		return Course{}, ErrCatalogUnavailable
	}
	return course, nil
}

func (s *catalogService) matches(course Course, filter CatalogFilter) bool {
	if filter.Query != "" {
		needle := s.fold.String(filter.Query)
		haystack := s.fold.String(course.Title + "\n" + course.Instructor + "\n" + course.Description)
		if !strings.Contains(haystack, needle) {
			return false
		}
	}
	if len(filter.Categories) > 0 && !containsString(filter.Categories, course.Category) {
		return false
	}
	if len(filter.Levels) > 0 && !containsString(filter.Levels, string(course.Level)) {
		return false
	}
	if len(filter.PriceTiers) > 0 {
		tier := "paid"
		if course.IsFree || course.Price == 0 {
			tier = "free"
		}
		if !containsString(filter.PriceTiers, tier) {
			return false
		}
	}
	if filter.MinRating != nil && course.Rating < *filter.MinRating {
		return false
	}
	if len(filter.Durations) > 0 && !containsString(filter.Durations, durationBucket(course.DurationHours)) {
		return false
	}
	if len(filter.Languages) > 0 && !containsString(filter.Languages, course.Language) {
		return false
	}
	if len(filter.Features) > 0 {
		any := false
		for _, feature := range course.Features {
			if containsString(filter.Features, feature) {
				any = true
				break
			}
		}
		if !any {
			return false
		}
	}
	return true
}

func durationBucket(hours float64) string {
	switch {
	case hours <= 5:
		return "0-5"
	case hours <= 10:
		return "6-10"
	case hours <= 20:
		return "11-20"
	case hours <= 40:
		return "21-40"
	default:
		return "40+"
	}
}

func sortCourses(courses []Course, by SortOption) {
	switch by {
	case domain.SortBestMatch:
		// Input order is the best-match order; leave it alone.
	case domain.SortHighestRated:
		sort.SliceStable(courses, func(i, j int) bool {
			return courses[i].Rating > courses[j].Rating
		})
	case domain.SortNewest:
		sort.SliceStable(courses, func(i, j int) bool {
			return courses[i].ID > courses[j].ID
		})
	case domain.SortPriceLowHigh:
		sort.SliceStable(courses, func(i, j int) bool {
			return courses[i].Price < courses[j].Price
		})
	case domain.SortPriceHighLow:
		sort.SliceStable(courses, func(i, j int) bool {
			return courses[i].Price > courses[j].Price
		})
	}
}

func normalizeFilter(filter CatalogFilter) (CatalogFilter, error) {
	filter.Query = strings.TrimSpace(filter.Query)

	if filter.SortBy == "" {
		filter.SortBy = domain.SortBestMatch
	}
	switch filter.SortBy {
	case domain.SortBestMatch, domain.SortHighestRated, domain.SortNewest,
		domain.SortPriceLowHigh, domain.SortPriceHighLow:
	default:
		return CatalogFilter{}, fmt.Errorf("%w: unknown sort %q", ErrCatalogInvalidInput, filter.SortBy)
	}

	for _, tier := range filter.PriceTiers {
		if tier != "free" && tier != "paid" {
			return CatalogFilter{}, fmt.Errorf("%w: unknown price tier %q", ErrCatalogInvalidInput, tier)
		}
	}
	for _, bucket := range filter.Durations {
		if !containsString(domain.DurationBuckets, bucket) {
			return CatalogFilter{}, fmt.Errorf("%w: unknown duration bucket %q", ErrCatalogInvalidInput, bucket)
		}
	}
	if filter.MinRating != nil && (*filter.MinRating < 0 || *filter.MinRating > 5) {
		return CatalogFilter{}, fmt.Errorf("%w: rating floor out of range", ErrCatalogInvalidInput)
	}

	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 {
		filter.PageSize = pagination.DefaultPageSize
	}
	return filter, nil
}

func containsString(haystack []string, needle string) bool {
	for _, v := range haystack {
		if v == needle {
			return true
		}
	}
	return false
}
