package parser

// Selectors for the review listing
const (
	// Review cards
	ReviewSelector       = ".empReview"
	FeaturedFlagSelector = ".featuredFlag"
	AuthorInfoSelector   = ".authorInfo"

	// Inside a review card
	DateSelector           = "time"
	DateAttribute          = "datetime"
	AuthorJobSelector      = ".authorJobTitle"
	AuthorLocationSelector = ".authorLocation"
	ReviewTitleSelector    = ".summary"
	MainTextSelector       = ".mainText"
	HelpfulSelector        = ".helpfulCount"

	// Pros, cons and advice blocks, in that order
	CommentBlockSelector = ".mt-md"
	ShowMoreSelector     = ".link"
	ParagraphSelector    = "p"

	// Ratings widget
	OverallRatingSelector = ".gdStars .rating .value-title"
	SubRatingsSelector    = ".gdStars .subRatings ul"
	SubRatingItemSelector = "li"
	SubRatingBarSelector  = ".gdBars"
	RatingAttribute       = "title"
)

// Marker texts
const (
	AnonymousAuthor = "Anonymous Employee"
	ShowMoreText    = "Show More"
	ShowLessText    = "Show Less"
)
