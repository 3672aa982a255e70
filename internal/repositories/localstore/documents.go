// Package localstore provides repositories backed by the namespaced local
// key-value store, mirroring how the storefront persisted state in browser
// local storage.
package localstore

import (
	"time"

	domain "github.com/skillforge/api/internal/domain"
)

// Document types carry the JSON tags; domain types stay serialization-free.

type cartDocument struct {
	UserID    string             `json:"userId"`
	Items     []lineItemDocument `json:"items"`
	Coupon    *couponDocument    `json:"coupon,omitempty"`
	UpdatedAt time.Time          `json:"updatedAt"`
}

type lineItemDocument struct {
	CourseID      string    `json:"courseId"`
	Title         string    `json:"title"`
	Instructor    string    `json:"instructor"`
	ThumbnailURL  string    `json:"thumbnailUrl,omitempty"`
	Price         int64     `json:"price"`
	OriginalPrice int64     `json:"originalPrice,omitempty"`
	AddedAt       time.Time `json:"addedAt"`
}

type couponDocument struct {
	Code      string    `json:"code"`
	Type      string    `json:"type"`
	Value     int64     `json:"value"`
	Amount    int64     `json:"amount"`
	AppliedAt time.Time `json:"appliedAt"`
}

type orderDocument struct {
	ID            string             `json:"id"`
	OrderNumber   string             `json:"orderNumber"`
	UserID        string             `json:"userId"`
	Status        string             `json:"status"`
	Items         []lineItemDocument `json:"items"`
	Totals        totalsDocument     `json:"totals"`
	Coupon        *couponDocument    `json:"coupon,omitempty"`
	Billing       addressDocument    `json:"billing"`
	PaymentMethod string             `json:"paymentMethod"`
	PaymentRef    string             `json:"paymentRef,omitempty"`
	CreatedAt     time.Time          `json:"createdAt"`
}

type totalsDocument struct {
	Subtotal       int64 `json:"subtotal"`
	Discount       int64 `json:"discount"`
	CouponDiscount int64 `json:"couponDiscount"`
	Total          int64 `json:"total"`
	Savings        int64 `json:"savings"`
}

type addressDocument struct {
	Name       string `json:"name"`
	Line1      string `json:"line1"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city"`
	State      string `json:"state,omitempty"`
	PostalCode string `json:"postalCode"`
	Country    string `json:"country"`
}

type draftDocument struct {
	Data    wizardDataDocument `json:"data"`
	SavedAt time.Time          `json:"savedAt"`
}

type wizardDataDocument struct {
	CourseID       string            `json:"courseId,omitempty"`
	Title          string            `json:"title"`
	Subtitle       string            `json:"subtitle"`
	Category       string            `json:"category"`
	Level          string            `json:"level"`
	Tags           []string          `json:"tags,omitempty"`
	Sections       []sectionDocument `json:"sections,omitempty"`
	Description    string            `json:"description"`
	LearningPoints []string          `json:"learningPoints,omitempty"`
	Requirements   []string          `json:"requirements,omitempty"`
	Price          int64             `json:"price"`
	OriginalPrice  int64             `json:"originalPrice,omitempty"`
}

type sectionDocument struct {
	ID       string            `json:"id"`
	Title    string            `json:"title"`
	Order    int               `json:"order"`
	Lectures []lectureDocument `json:"lectures,omitempty"`
}

type lectureDocument struct {
	ID              string `json:"id"`
	SectionID       string `json:"sectionId"`
	Title           string `json:"title"`
	Order           int    `json:"order"`
	DurationMinutes int    `json:"durationMinutes,omitempty"`
	VideoURL        string `json:"videoUrl,omitempty"`
	Preview         bool   `json:"preview,omitempty"`
}

type playerStateDocument struct {
	CourseID        string         `json:"courseId"`
	BookmarkSeconds int            `json:"bookmarkSeconds"`
	Notes           []noteDocument `json:"notes,omitempty"`
	UpdatedAt       time.Time      `json:"updatedAt"`
}

type noteDocument struct {
	ID        string    `json:"id"`
	AtSeconds int       `json:"atSeconds"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"createdAt"`
}

func lineItemsToDocuments(items []domain.CartLineItem) []lineItemDocument {
	docs := make([]lineItemDocument, 0, len(items))
	for _, item := range items {
		docs = append(docs, lineItemDocument{
			CourseID:      item.CourseID,
			Title:         item.Title,
			Instructor:    item.Instructor,
			ThumbnailURL:  item.ThumbnailURL,
			Price:         item.Price,
			OriginalPrice: item.OriginalPrice,
			AddedAt:       item.AddedAt,
		})
	}
	return docs
}

func lineItemsFromDocuments(docs []lineItemDocument) []domain.CartLineItem {
	items := make([]domain.CartLineItem, 0, len(docs))
	for _, doc := range docs {
		items = append(items, domain.CartLineItem{
			CourseID:      doc.CourseID,
			Title:         doc.Title,
			Instructor:    doc.Instructor,
			ThumbnailURL:  doc.ThumbnailURL,
			Price:         doc.Price,
			OriginalPrice: doc.OriginalPrice,
			AddedAt:       doc.AddedAt,
		})
	}
	return items
}

func couponToDocument(coupon *domain.AppliedCoupon) *couponDocument {
	if coupon == nil {
		return nil
	}
	return &couponDocument{
		Code:      coupon.Code,
		Type:      string(coupon.Type),
		Value:     coupon.Value,
		Amount:    coupon.Amount,
		AppliedAt: coupon.AppliedAt,
	}
}

func couponFromDocument(doc *couponDocument) *domain.AppliedCoupon {
	if doc == nil {
		return nil
	}
	return &domain.AppliedCoupon{
		Code:      doc.Code,
		Type:      domain.DiscountType(doc.Type),
		Value:     doc.Value,
		Amount:    doc.Amount,
		AppliedAt: doc.AppliedAt,
	}
}

func wizardDataToDocument(data domain.CourseWizardData) wizardDataDocument {
	doc := wizardDataDocument{
		CourseID:       data.CourseID,
		Title:          data.Title,
		Subtitle:       data.Subtitle,
		Category:       data.Category,
		Level:          string(data.Level),
		Tags:           append([]string(nil), data.Tags...),
		Description:    data.Description,
		LearningPoints: append([]string(nil), data.LearningPoints...),
		Requirements:   append([]string(nil), data.Requirements...),
		Price:          data.Price,
		OriginalPrice:  data.OriginalPrice,
	}
	for _, section := range data.Sections {
		sectionDoc := sectionDocument{
			ID:    section.ID,
			Title: section.Title,
			Order: section.Order,
		}
		for _, lecture := range section.Lectures {
			sectionDoc.Lectures = append(sectionDoc.Lectures, lectureDocument{
				ID:              lecture.ID,
				SectionID:       lecture.SectionID,
				Title:           lecture.Title,
				Order:           lecture.Order,
				DurationMinutes: lecture.DurationMinutes,
				VideoURL:        lecture.VideoURL,
				Preview:         lecture.Preview,
			})
		}
		doc.Sections = append(doc.Sections, sectionDoc)
	}
	return doc
}

func wizardDataFromDocument(doc wizardDataDocument) domain.CourseWizardData {
	data := domain.CourseWizardData{
		CourseID:       doc.CourseID,
		Title:          doc.Title,
		Subtitle:       doc.Subtitle,
		Category:       doc.Category,
		Level:          domain.CourseLevel(doc.Level),
		Tags:           append([]string(nil), doc.Tags...),
		Description:    doc.Description,
		LearningPoints: append([]string(nil), doc.LearningPoints...),
		Requirements:   append([]string(nil), doc.Requirements...),
		Price:          doc.Price,
		OriginalPrice:  doc.OriginalPrice,
	}
	for _, sectionDoc := range doc.Sections {
		section := domain.CourseSection{
			ID:    sectionDoc.ID,
			Title: sectionDoc.Title,
			Order: sectionDoc.Order,
		}
		for _, lectureDoc := range sectionDoc.Lectures {
			section.Lectures = append(section.Lectures, domain.CourseLecture{
				ID:              lectureDoc.ID,
				SectionID:       lectureDoc.SectionID,
				Title:           lectureDoc.Title,
				Order:           lectureDoc.Order,
				DurationMinutes: lectureDoc.DurationMinutes,
				VideoURL:        lectureDoc.VideoURL,
				Preview:         lectureDoc.Preview,
			})
		}
		data.Sections = append(data.Sections, section)
	}
	return data
}
