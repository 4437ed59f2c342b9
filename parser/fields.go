package parser

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"review-scraper/dom"
	"review-scraper/models"

	"go.uber.org/zap"
)

// reviewNode is one review card plus its author info block
type reviewNode struct {
	review dom.Element
	author dom.Element // nil when the card has no author block
	text   string      // Full card text, read once
}

func newReviewNode(review dom.Element) *reviewNode {
	n := &reviewNode{review: review}
	if author, err := review.Find(AuthorInfoSelector); err == nil {
		n.author = author
	}
	if text, err := review.Text(); err == nil {
		n.text = text
	}
	return n
}

func (n *reviewNode) anonymous() bool {
	return strings.Contains(n.text, AnonymousAuthor)
}

// FieldExtractor reads one schema field from a review card. Extract never
// fails: unreadable values come back as models.Missing or models.Defaulted.
type FieldExtractor struct {
	Field   string
	Extract func(n *reviewNode) models.Value
}

// extractors holds the per-field rules; warnings go to logger
type extractors struct {
	logger *zap.Logger
}

// DefaultExtractors returns one extractor per schema field, in schema order
func DefaultExtractors(logger *zap.Logger) []FieldExtractor {
	x := &extractors{logger: logger}

	fields := []FieldExtractor{
		{models.FieldDate, x.date},
		{models.FieldEmployeeTitle, x.employeeTitle},
		{models.FieldLocation, x.location},
		{models.FieldEmployeeStatus, x.employeeStatus},
		{models.FieldReviewTitle, x.reviewTitle},
		{models.FieldYearsAtCompany, x.yearsAtCompany},
		{models.FieldHelpful, x.helpful},
		{models.FieldPros, x.comment(0)},
		{models.FieldCons, x.comment(1)},
		{models.FieldAdviceToMgmt, x.comment(2)},
		{models.FieldRatingOverall, x.overallRating},
	}
	for _, sub := range models.SubRatings {
		fields = append(fields, FieldExtractor{sub.Field, x.subRating(sub.Position)})
	}
	return fields
}

func (x *extractors) warn(field string, err error) {
	x.logger.Warn("failed to scrape field", zap.String("field", field), zap.Error(err))
}

func text(el dom.Element, selector string) (string, error) {
	found, err := el.Find(selector)
	if err != nil {
		return "", err
	}
	t, err := found.Text()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(t), nil
}

func attribute(el dom.Element, selector, name string) (string, error) {
	found, err := el.Find(selector)
	if err != nil {
		return "", err
	}
	v, ok, err := found.Attribute(name)
	if err != nil {
		return "", err
	}
	v = strings.TrimSpace(v)
	if !ok || v == "" {
		return "", fmt.Errorf("%s has no %s attribute", selector, name)
	}
	return v, nil
}

func (x *extractors) date(n *reviewNode) models.Value {
	v, err := attribute(n.review, DateSelector, DateAttribute)
	if err != nil {
		x.warn(models.FieldDate, err)
		return models.Missing()
	}
	return models.OK(v)
}

// authorJobLine reads "<status> - <title>" from the author block
func (n *reviewNode) authorJobLine() (string, error) {
	if n.author == nil {
		return "", fmt.Errorf("%w: %s", dom.ErrNotFound, AuthorInfoSelector)
	}
	return text(n.author, AuthorJobSelector)
}

func (x *extractors) employeeTitle(n *reviewNode) models.Value {
	if n.anonymous() {
		return models.Missing()
	}

	line, err := n.authorJobLine()
	if err != nil {
		x.warn(models.FieldEmployeeTitle, err)
		return models.Missing()
	}
	parts := strings.SplitN(line, "-", 2)
	if len(parts) < 2 || strings.TrimSpace(parts[1]) == "" {
		x.warn(models.FieldEmployeeTitle, fmt.Errorf("no title in author line %q", line))
		return models.Missing()
	}

	title := strings.TrimSpace(parts[1])
	if i := strings.LastIndex(title, " in "); i > 0 {
		title = strings.TrimSpace(title[:i])
	}
	return models.OK(title)
}

func (x *extractors) location(n *reviewNode) models.Value {
	if n.anonymous() || n.author == nil {
		return models.Missing()
	}

	if loc, err := text(n.author, AuthorLocationSelector); err == nil && loc != "" {
		return models.OK(loc)
	}

	// Newer cards inline the location: "Current Employee - Engineer in Austin, TX"
	line, err := n.authorJobLine()
	if err != nil {
		return models.Missing()
	}
	if i := strings.LastIndex(line, " in "); i > 0 {
		if loc := strings.TrimSpace(line[i+len(" in "):]); loc != "" {
			return models.OK(loc)
		}
	}
	return models.Missing()
}

func (x *extractors) employeeStatus(n *reviewNode) models.Value {
	if n.author == nil {
		x.warn(models.FieldEmployeeStatus, fmt.Errorf("%w: %s", dom.ErrNotFound, AuthorInfoSelector))
		return models.Missing()
	}
	line, err := n.author.Text()
	if err != nil {
		x.warn(models.FieldEmployeeStatus, err)
		return models.Missing()
	}

	status := strings.TrimSpace(strings.SplitN(line, "-", 2)[0])
	if status == "" {
		x.warn(models.FieldEmployeeStatus, fmt.Errorf("empty author line"))
		return models.Missing()
	}
	return models.OK(status)
}

func (x *extractors) reviewTitle(n *reviewNode) models.Value {
	title, err := text(n.review, ReviewTitleSelector)
	if err != nil {
		x.warn(models.FieldReviewTitle, err)
		return models.Missing()
	}
	title = strings.TrimSpace(strings.Trim(title, `"“”`))
	if title == "" {
		return models.Missing()
	}
	return models.OK(title)
}

func (x *extractors) yearsAtCompany(n *reviewNode) models.Value {
	years, err := text(n.review, MainTextSelector)
	if err != nil || years == "" {
		return models.Missing()
	}
	return models.OK(years)
}

var helpfulCount = regexp.MustCompile(`\(\s*([\d,]+)\s*\)`)

// helpful is a count: when unreadable it is zero, never missing
func (x *extractors) helpful(n *reviewNode) models.Value {
	t, err := text(n.review, HelpfulSelector)
	if err != nil {
		return models.Defaulted("0")
	}
	matches := helpfulCount.FindStringSubmatch(t)
	if len(matches) < 2 {
		return models.Defaulted("0")
	}
	count, err := strconv.Atoi(strings.ReplaceAll(matches[1], ",", ""))
	if err != nil || count < 0 {
		return models.Defaulted("0")
	}
	return models.OK(strconv.Itoa(count))
}

// expandShowMore clicks the block's "Show More" link when there is one.
// Failures are ignored: the truncated text is still worth keeping.
func (x *extractors) expandShowMore(section dom.Element) {
	link, err := section.Find(ShowMoreSelector)
	if err != nil {
		return
	}
	label, err := link.Text()
	if err != nil || strings.TrimSpace(label) != ShowMoreText {
		return
	}
	if err := link.Click(); err != nil {
		x.logger.Debug("failed to expand comment", zap.Error(err))
	}
}

// comment reads the ind-th comment block: 0 pros, 1 cons, 2 advice.
// The first paragraph is the block's label and is skipped.
func (x *extractors) comment(ind int) func(n *reviewNode) models.Value {
	return func(n *reviewNode) models.Value {
		sections, err := n.review.FindAll(CommentBlockSelector)
		if err != nil || ind >= len(sections) {
			return models.Missing()
		}
		section := sections[ind]
		x.expandShowMore(section)

		paragraphs, err := section.FindAll(ParagraphSelector)
		if err != nil || len(paragraphs) < 1 {
			return models.Missing()
		}

		var parts []string
		for _, p := range paragraphs[1:] {
			t, err := p.Text()
			if err != nil {
				continue
			}
			t = strings.ReplaceAll(t, "\n"+ShowLessText, "")
			t = strings.ReplaceAll(t, "\n", "")
			parts = append(parts, strings.TrimSpace(t))
		}

		joined := strings.TrimSpace(strings.Join(parts, " "))
		if joined == "" {
			return models.Missing()
		}
		return models.OK(joined)
	}
}

func (x *extractors) overallRating(n *reviewNode) models.Value {
	v, err := attribute(n.review, OverallRatingSelector, RatingAttribute)
	if err != nil {
		return models.Missing()
	}
	return models.OK(v)
}

// subRating reads the category rating at position i of the sub-rating list
func (x *extractors) subRating(i int) func(n *reviewNode) models.Value {
	return func(n *reviewNode) models.Value {
		list, err := n.review.Find(SubRatingsSelector)
		if err != nil {
			return models.Missing()
		}
		items, err := list.FindAll(SubRatingItemSelector)
		if err != nil || i >= len(items) {
			return models.Missing()
		}
		v, err := attribute(items[i], SubRatingBarSelector, RatingAttribute)
		if err != nil {
			return models.Missing()
		}
		return models.OK(v)
	}
}
