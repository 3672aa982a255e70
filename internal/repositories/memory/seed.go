package memory

import (
	domain "github.com/skillforge/api/internal/domain"
)

// Course ids are ULIDs assigned in publication order, so the id doubles as a
// creation-time proxy for the "newest" sort.
// TODO: carry a real CreatedAt on Course and key "newest" on it instead.
func SeedCourses() []domain.Course {
	return []domain.Course{
		{
			ID:            "01J5K000000000000000000001",
			Title:         "The Complete Web Development Bootcamp",
			Subtitle:      "HTML, CSS, JavaScript, Node and friends from zero",
			Instructor:    "Maya Chen",
			Description:   "Build twelve real projects while learning the full modern web stack.",
			Category:      "Development",
			Level:         domain.CourseLevelBeginner,
			Language:      "English",
			Price:         8499,
			OriginalPrice: 19999,
			Rating:        4.7,
			RatingCount:   21840,
			DurationHours: 54,
			Features:      []string{"certificate", "lifetime-access", "subtitles"},
		},
		{
			ID:            "01J5K000000000000000000002",
			Title:         "UI Design Fundamentals",
			Subtitle:      "Layout, color and typography for product designers",
			Instructor:    "Jonas Berg",
			Description:   "A practical introduction to interface design with weekly critiques.",
			Category:      "Design",
			Level:         domain.CourseLevelBeginner,
			Language:      "English",
			Price:         5999,
			OriginalPrice: 11999,
			Rating:        4.5,
			RatingCount:   8311,
			DurationHours: 12,
			Features:      []string{"certificate", "subtitles"},
		},
		{
			ID:            "01J5K000000000000000000003",
			Title:         "Data Science with Python",
			Subtitle:      "Pandas, NumPy and scikit-learn in practice",
			Instructor:    "Priya Raghavan",
			Description:   "From dataframes to deployed models, with real datasets throughout.",
			Category:      "Data Science",
			Level:         domain.CourseLevelIntermediate,
			Language:      "English",
			Price:         10999,
			OriginalPrice: 21999,
			Rating:        4.8,
			RatingCount:   15204,
			DurationHours: 38,
			Features:      []string{"certificate", "lifetime-access", "exercises"},
		},
		{
			ID:            "01J5K000000000000000000004",
			Title:         "Introduction to Digital Marketing",
			Subtitle:      "SEO, content and paid channels explained",
			Instructor:    "Sofia Marino",
			Description:   "Plan and measure your first campaigns without the jargon.",
			Category:      "Marketing",
			Level:         domain.CourseLevelBeginner,
			Language:      "Spanish",
			Price:         0,
			IsFree:        true,
			Rating:        4.2,
			RatingCount:   3102,
			DurationHours: 4,
			Features:      []string{"subtitles"},
		},
		{
			ID:            "01J5K000000000000000000005",
			Title:         "Advanced TypeScript Patterns",
			Subtitle:      "Generics, conditional types and the compiler API",
			Instructor:    "Maya Chen",
			Description:   "Type-level programming for engineers shipping large codebases.",
			Category:      "Development",
			Level:         domain.CourseLevelAdvanced,
			Language:      "English",
			Price:         12999,
			Rating:        4.9,
			RatingCount:   4450,
			DurationHours: 17,
			Features:      []string{"certificate", "exercises"},
		},
		{
			ID:            "01J5K000000000000000000006",
			Title:         "Portrait Photography Masterclass",
			Subtitle:      "Light, pose and retouch",
			Instructor:    "Elena Vasquez",
			Description:   "Studio and natural-light portraiture from first shoot to portfolio.",
			Category:      "Photography",
			Level:         domain.CourseLevelAllLevels,
			Language:      "English",
			Price:         7499,
			OriginalPrice: 14999,
			Rating:        4.6,
			RatingCount:   6720,
			DurationHours: 22,
			Features:      []string{"certificate", "lifetime-access"},
		},
		{
			ID:            "01J5K000000000000000000007",
			Title:         "Music Theory for Producers",
			Subtitle:      "Chords, scales and arrangement in the DAW",
			Instructor:    "Theo Williams",
			Description:   "Stop guessing notes; learn the theory behind tracks you love.",
			Category:      "Music",
			Level:         domain.CourseLevelBeginner,
			Language:      "English",
			Price:         0,
			IsFree:        true,
			Rating:        4.4,
			RatingCount:   2980,
			DurationHours: 8,
			Features:      []string{"subtitles"},
		},
		{
			ID:            "01J5K000000000000000000008",
			Title:         "Agile Product Management",
			Subtitle:      "Discovery, roadmaps and stakeholder alignment",
			Instructor:    "Claire Dubois",
			Description:   "A working PM's playbook for shipping the right thing.",
			Category:      "Business",
			Level:         domain.CourseLevelIntermediate,
			Language:      "French",
			Price:         9499,
			OriginalPrice: 18999,
			Rating:        4.3,
			RatingCount:   5113,
			DurationHours: 14,
			Features:      []string{"certificate"},
		},
		{
			ID:            "01J5K000000000000000000009",
			Title:         "Design Systems at Scale",
			Subtitle:      "Tokens, components and governance",
			Instructor:    "Jonas Berg",
			Description:   "Build and maintain a design system a hundred engineers can use.",
			Category:      "Design",
			Level:         domain.CourseLevelAdvanced,
			Language:      "English",
			Price:         13999,
			Rating:        4.8,
			RatingCount:   2204,
			DurationHours: 19,
			Features:      []string{"certificate", "exercises", "lifetime-access"},
		},
		{
			ID:            "01J5K00000000000000000000A",
			Title:         "Mindful Productivity",
			Subtitle:      "Deep work without burnout",
			Instructor:    "Akira Tanaka",
			Description:   "Evidence-based habits for focus, energy and sustainable output.",
			Category:      "Personal Development",
			Level:         domain.CourseLevelAllLevels,
			Language:      "Japanese",
			Price:         4999,
			OriginalPrice: 9999,
			Rating:        4.1,
			RatingCount:   1893,
			DurationHours: 6,
			Features:      []string{"subtitles"},
		},
		{
			ID:            "01J5K00000000000000000000B",
			Title:         "Machine Learning Engineering",
			Subtitle:      "From notebook to production pipeline",
			Instructor:    "Priya Raghavan",
			Description:   "Feature stores, serving, monitoring and the unglamorous rest.",
			Category:      "Data Science",
			Level:         domain.CourseLevelAdvanced,
			Language:      "English",
			Price:         15999,
			OriginalPrice: 29999,
			Rating:        4.7,
			RatingCount:   3340,
			DurationHours: 45,
			Features:      []string{"certificate", "lifetime-access", "exercises"},
		},
		{
			ID:            "01J5K00000000000000000000C",
			Title:         "Brand Strategy Essentials",
			Subtitle:      "Positioning, voice and identity",
			Instructor:    "Sofia Marino",
			Description:   "Craft a brand story customers remember, with worked case studies.",
			Category:      "Marketing",
			Level:         domain.CourseLevelIntermediate,
			Language:      "English",
			Price:         6999,
			Rating:        4.0,
			RatingCount:   987,
			DurationHours: 9,
			Features:      []string{"certificate"},
		},
	}
}

// SeedCoupons returns the fixed coupon table the storefront ships with.
func SeedCoupons() []domain.Coupon {
	return []domain.Coupon{
		{
			Code:        "WELCOME10",
			Type:        domain.DiscountTypePercentage,
			Value:       10,
			MaxDiscount: 5000,
			MinAmount:   2000,
			Description: "10% off your first order",
			Active:      true,
		},
		{
			Code:        "SAVE20",
			Type:        domain.DiscountTypeFixed,
			Value:       2000,
			MinAmount:   10000,
			Description: "$20 off orders over $100",
			Active:      true,
		},
		{
			Code:        "LEARN50",
			Type:        domain.DiscountTypePercentage,
			Value:       50,
			MaxDiscount: 10000,
			MinAmount:   15000,
			Description: "Half off, capped at $100",
			Active:      true,
		},
		{
			Code:        "LAUNCH25",
			Type:        domain.DiscountTypeFixed,
			Value:       2500,
			MinAmount:   5000,
			Description: "Launch-week special",
			Active:      false,
		},
	}
}
