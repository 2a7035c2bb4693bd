package model

// Category is one of the fixed set of marker classification tags.
type Category string

const (
	CategoryMemory   Category = "memory"
	CategoryWishlist Category = "wishlist"
	CategorySpring   Category = "spring"
	CategorySummer   Category = "summer"
	CategoryAutumn   Category = "autumn"
	CategoryWinter   Category = "winter"
)

// DefaultCategory is assigned when a marker is registered without any tags.
const DefaultCategory = CategoryWishlist

// AllCategories lists every defined category in display order.
// Filter maps and metadata lookups must cover exactly this set.
var AllCategories = []Category{
	CategoryMemory,
	CategoryWishlist,
	CategorySpring,
	CategorySummer,
	CategoryAutumn,
	CategoryWinter,
}

// CategoryMeta holds the static presentation metadata for a category.
type CategoryMeta struct {
	Label  string
	Emoji  string
	Color  string
	Border string
	Glyph  string
}

// categoryMeta is keyed by every defined category; Meta falls back to the
// default category's entry for unknown keys so callers never get a zero value.
var categoryMeta = map[Category]CategoryMeta{
	CategoryMemory:   {Label: "추억", Emoji: "📸", Color: "#8b5cf6", Border: "#5b21b6", Glyph: "#ddd6fe"},
	CategoryWishlist: {Label: "위시", Emoji: "⭐", Color: "#3b82f6", Border: "#1e40af", Glyph: "#bfdbfe"},
	CategorySpring:   {Label: "봄", Emoji: "🌸", Color: "#f472b6", Border: "#9d174d", Glyph: "#fbcfe8"},
	CategorySummer:   {Label: "여름", Emoji: "🏖️", Color: "#10b981", Border: "#065f46", Glyph: "#a7f3d0"},
	CategoryAutumn:   {Label: "가을", Emoji: "🍁", Color: "#f59e0b", Border: "#b45309", Glyph: "#fde68a"},
	CategoryWinter:   {Label: "겨울", Emoji: "❄️", Color: "#ffffff", Border: "#515151", Glyph: "#d1f8ff"},
}

// Meta returns the presentation metadata for a category.
func (c Category) Meta() CategoryMeta {
	if m, ok := categoryMeta[c]; ok {
		return m
	}
	return categoryMeta[DefaultCategory]
}

// Valid reports whether c is one of the defined categories.
func (c Category) Valid() bool {
	_, ok := categoryMeta[c]
	return ok
}

// DedupCategories returns the tags with invalid entries removed and duplicates
// collapsed, preserving first-occurrence order. Order matters: the first tag
// is the primary one used for single-badge rendering.
func DedupCategories(tags []Category) []Category {
	seen := make(map[Category]struct{}, len(tags))
	out := make([]Category, 0, len(tags))
	for _, tag := range tags {
		if !tag.Valid() {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	return out
}

// FilterState maps every defined category to a visibility flag.
// The map is always total; a missing key is a bug.
type FilterState map[Category]bool

// NewFilterState returns the default filter state with all categories visible.
func NewFilterState() FilterState {
	f := make(FilterState, len(AllCategories))
	for _, c := range AllCategories {
		f[c] = true
	}
	return f
}

// Clone returns an independent copy of the filter state.
func (f FilterState) Clone() FilterState {
	out := make(FilterState, len(f))
	for c, v := range f {
		out[c] = v
	}
	return out
}
