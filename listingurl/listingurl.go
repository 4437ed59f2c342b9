package listingurl

import (
	"fmt"
	"net/url"
	"regexp"
	"strconv"
)

// Query parameters controlling the listing's date sort
const (
	SortTypeParam      = "sort.sortType"
	SortAscendingParam = "sort.ascending"
	SortByDate         = "RD"
)

var pageSuffix = regexp.MustCompile(`_P(\d+)\.htm`)

// Ascending reports the listing's sort direction.
// ok is false when the URL carries no sort.ascending parameter.
func Ascending(urlStr string) (ascending bool, ok bool) {
	parsedURL, err := url.Parse(urlStr)
	if err != nil {
		return false, false
	}

	values, present := parsedURL.Query()[SortAscendingParam]
	if !present || len(values) == 0 {
		return false, false
	}
	return values[0] == "true", true
}

// WithDateSort returns the URL sorted by review date in the given direction.
// Any existing sort parameters are replaced.
func WithDateSort(urlStr string, ascending bool) (string, error) {
	parsedURL, err := url.Parse(urlStr)
	if err != nil {
		return "", fmt.Errorf("failed to parse URL: %w", err)
	}

	query := parsedURL.Query()
	query.Set(SortTypeParam, SortByDate)
	query.Set(SortAscendingParam, strconv.FormatBool(ascending))
	parsedURL.RawQuery = query.Encode()

	return parsedURL.String(), nil
}

// PageFromURL extracts the page number from paged listing URLs such as
// .../Reviews/Acme-Reviews-E123_P7.htm. ok is false for unpaged URLs.
func PageFromURL(urlStr string) (page int, ok bool) {
	matches := pageSuffix.FindStringSubmatch(urlStr)
	if len(matches) < 2 {
		return 0, false
	}
	page, err := strconv.Atoi(matches[1])
	if err != nil || page < 1 {
		return 0, false
	}
	return page, true
}

// Resolve resolves an href read from the page against the page's own URL
func Resolve(base, href string) (string, error) {
	ref, err := url.Parse(href)
	if err != nil {
		return "", fmt.Errorf("invalid href %q: %w", href, err)
	}
	if ref.IsAbs() {
		return ref.String(), nil
	}

	baseURL, err := url.Parse(base)
	if err != nil || !baseURL.IsAbs() {
		return "", fmt.Errorf("cannot resolve relative href %q against %q", href, base)
	}
	return baseURL.ResolveReference(ref).String(), nil
}
