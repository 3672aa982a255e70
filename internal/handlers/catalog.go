package handlers

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	domain "github.com/skillforge/api/internal/domain"
	"github.com/skillforge/api/internal/platform/httpx"
	"github.com/skillforge/api/internal/platform/pagination"
	"github.com/skillforge/api/internal/services"
)

const maxSearchBodySize = 8 * 1024

// CatalogHandlers exposes the public course browsing endpoints.
type CatalogHandlers struct {
	catalog  services.CatalogService
	searches *services.SearchCoordinator
}

// NewCatalogHandlers constructs the catalog endpoint handlers. The coordinator
// is optional; without it the debounced search endpoints respond 503.
func NewCatalogHandlers(catalog services.CatalogService, searches *services.SearchCoordinator) *CatalogHandlers {
	return &CatalogHandlers{catalog: catalog, searches: searches}
}

// Routes wires the /catalog endpoints onto the provided router.
func (h *CatalogHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/", h.search)
	r.Get("/facets", h.facets)
	r.Post("/search", h.submitSearch)
	r.Get("/search/latest", h.latestSearch)
	r.Get("/{courseID}", h.getCourse)
}

type coursePayload struct {
	ID            string   `json:"id"`
	Title         string   `json:"title"`
	Subtitle      string   `json:"subtitle,omitempty"`
	Instructor    string   `json:"instructor"`
	Description   string   `json:"description,omitempty"`
	Category      string   `json:"category"`
	Level         string   `json:"level"`
	Language      string   `json:"language"`
	Price         int64    `json:"price"`
	OriginalPrice int64    `json:"originalPrice,omitempty"`
	IsFree        bool     `json:"isFree"`
	Rating        float64  `json:"rating"`
	RatingCount   int      `json:"ratingCount"`
	DurationHours float64  `json:"durationHours"`
	Features      []string `json:"features,omitempty"`
	ThumbnailURL  string   `json:"thumbnailUrl,omitempty"`
}

type catalogPagePayload struct {
	Courses    []coursePayload `json:"courses"`
	TotalCount int             `json:"totalCount"`
	Page       int             `json:"page"`
	PageSize   int             `json:"pageSize"`
}

func courseToPayload(course services.Course) coursePayload {
	return coursePayload{
		ID:            course.ID,
		Title:         course.Title,
		Subtitle:      course.Subtitle,
		Instructor:    course.Instructor,
		Description:   course.Description,
		Category:      course.Category,
		Level:         string(course.Level),
		Language:      course.Language,
		Price:         course.Price,
		OriginalPrice: course.OriginalPrice,
		IsFree:        course.IsFree || course.Price == 0,
		Rating:        course.Rating,
		RatingCount:   course.RatingCount,
		DurationHours: course.DurationHours,
		Features:      course.Features,
		ThumbnailURL:  course.ThumbnailURL,
	}
}

func (h *CatalogHandlers) search(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.catalog == nil {
		httpx.WriteError(ctx, w, httpx.NewError("catalog_service_unavailable", "catalog service is unavailable", http.StatusServiceUnavailable))
		return
	}

	filter, err := parseCatalogFilter(r.URL.Query())
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}

	page, err := h.catalog.Search(ctx, filter)
	if err != nil {
		h.writeCatalogError(w, r, err)
		return
	}

	payload := catalogPagePayload{
		Courses:    make([]coursePayload, len(page.Courses)),
		TotalCount: page.TotalCount,
		Page:       page.Page,
		PageSize:   page.PageSize,
	}
	for i, course := range page.Courses {
		payload.Courses[i] = courseToPayload(course)
	}
	writeJSONResponse(w, http.StatusOK, payload)
}

// facets lists the fixed filter vocabularies so clients render the same
// options the engine understands.
func (h *CatalogHandlers) facets(w http.ResponseWriter, r *http.Request) {
	writeJSONResponse(w, http.StatusOK, map[string]any{
		"categories": domain.CourseCategories,
		"levels": []string{
			string(domain.CourseLevelBeginner),
			string(domain.CourseLevelIntermediate),
			string(domain.CourseLevelAdvanced),
			string(domain.CourseLevelAllLevels),
		},
		"priceTiers": []string{"free", "paid"},
		"durations":  domain.DurationBuckets,
		"sorts": []string{
			string(domain.SortBestMatch),
			string(domain.SortHighestRated),
			string(domain.SortNewest),
			string(domain.SortPriceLowHigh),
			string(domain.SortPriceHighLow),
		},
	})
}

type searchRequest struct {
	Query      string   `json:"q"`
	Categories []string `json:"categories"`
	Levels     []string `json:"levels"`
	PriceTiers []string `json:"priceTiers"`
	Durations  []string `json:"durations"`
	Languages  []string `json:"languages"`
	Features   []string `json:"features"`
	Sort       string   `json:"sort"`
	Rating     *float64 `json:"rating"`
	Page       int      `json:"page"`
	PageSize   int      `json:"pageSize"`
}

type searchSnapshotPayload struct {
	Seq        uint64             `json:"seq"`
	Superseded bool               `json:"superseded"`
	Page       catalogPagePayload `json:"page"`
	FinishedAt time.Time          `json:"finishedAt"`
}

func buildSearchSnapshotPayload(snapshot services.SearchSnapshot, submitted uint64) searchSnapshotPayload {
	payload := searchSnapshotPayload{
		Seq:        snapshot.Seq,
		Superseded: submitted != 0 && snapshot.Seq != submitted,
		FinishedAt: snapshot.FinishedAt,
		Page: catalogPagePayload{
			Courses:    make([]coursePayload, len(snapshot.Page.Courses)),
			TotalCount: snapshot.Page.TotalCount,
			Page:       snapshot.Page.Page,
			PageSize:   snapshot.Page.PageSize,
		},
	}
	for i, course := range snapshot.Page.Courses {
		payload.Page.Courses[i] = courseToPayload(course)
	}
	return payload
}

// submitSearch runs a query through the coordinator: the request waits for its
// own submission to finish, then reports whichever result is currently
// published. A submission overtaken by a newer one comes back superseded.
func (h *CatalogHandlers) submitSearch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.searches == nil {
		httpx.WriteError(ctx, w, httpx.NewError("search_unavailable", "search is unavailable", http.StatusServiceUnavailable))
		return
	}

	var req searchRequest
	if err := decodeBody(r, maxSearchBodySize, &req); err != nil {
		writeBodyError(ctx, w, err)
		return
	}

	filter := services.CatalogFilter{
		Query:      req.Query,
		Categories: req.Categories,
		Levels:     req.Levels,
		PriceTiers: req.PriceTiers,
		Durations:  req.Durations,
		Languages:  req.Languages,
		Features:   req.Features,
		SortBy:     services.SortOption(strings.TrimSpace(req.Sort)),
		MinRating:  req.Rating,
		Page:       req.Page,
		PageSize:   req.PageSize,
	}

	seq, done := h.searches.Submit(ctx, filter)
	select {
	case <-done:
	case <-ctx.Done():
		return
	}

	snapshot, ok := h.searches.Snapshot()
	if !ok {
		httpx.WriteError(ctx, w, httpx.NewError("search_unavailable", "search produced no result", http.StatusServiceUnavailable))
		return
	}
	if snapshot.Seq == seq && snapshot.Err != nil {
		h.writeCatalogError(w, r, snapshot.Err)
		return
	}
	writeJSONResponse(w, http.StatusOK, buildSearchSnapshotPayload(snapshot, seq))
}

func (h *CatalogHandlers) latestSearch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.searches == nil {
		httpx.WriteError(ctx, w, httpx.NewError("search_unavailable", "search is unavailable", http.StatusServiceUnavailable))
		return
	}

	snapshot, ok := h.searches.Snapshot()
	if !ok {
		httpx.WriteError(ctx, w, httpx.NewError("search_no_result", "no search has completed yet", http.StatusNotFound))
		return
	}
	if snapshot.Err != nil {
		h.writeCatalogError(w, r, snapshot.Err)
		return
	}
	writeJSONResponse(w, http.StatusOK, buildSearchSnapshotPayload(snapshot, 0))
}

func (h *CatalogHandlers) getCourse(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.catalog == nil {
		httpx.WriteError(ctx, w, httpx.NewError("catalog_service_unavailable", "catalog service is unavailable", http.StatusServiceUnavailable))
		return
	}

	course, err := h.catalog.FindCourse(ctx, chi.URLParam(r, "courseID"))
	if err != nil {
		h.writeCatalogError(w, r, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, courseToPayload(course))
}

func (h *CatalogHandlers) writeCatalogError(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()
	switch {
	case errors.Is(err, services.ErrCatalogInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrCatalogCourseNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("course_not_found", "course not found", http.StatusNotFound))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("catalog_unavailable", "catalog is unavailable", http.StatusServiceUnavailable))
	}
}

func parseCatalogFilter(values url.Values) (services.CatalogFilter, error) {
	params, err := pagination.Parse(values, pagination.Options{})
	if err != nil {
		return services.CatalogFilter{}, err
	}

	filter := services.CatalogFilter{
		Query:      values.Get("q"),
		Categories: splitMulti(values, "category"),
		Levels:     splitMulti(values, "level"),
		PriceTiers: splitMulti(values, "price"),
		Durations:  splitMulti(values, "duration"),
		Languages:  splitMulti(values, "language"),
		Features:   splitMulti(values, "feature"),
		SortBy:     services.SortOption(strings.TrimSpace(values.Get("sort"))),
		Page:       params.Page,
		PageSize:   params.PageSize,
	}

	if raw := strings.TrimSpace(values.Get("rating")); raw != "" {
		rating, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return services.CatalogFilter{}, errors.New("rating must be a number")
		}
		filter.MinRating = &rating
	}
	return filter, nil
}

// splitMulti accepts both repeated keys and comma-separated values.
func splitMulti(values url.Values, key string) []string {
	var out []string
	for _, raw := range values[key] {
		for _, part := range strings.Split(raw, ",") {
			if trimmed := strings.TrimSpace(part); trimmed != "" {
				out = append(out, trimmed)
			}
		}
	}
	return out
}
