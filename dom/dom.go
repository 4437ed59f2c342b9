// Package dom describes the small browser capability surface the scraper
// needs: locate elements by CSS selector or XPath, read text and attributes,
// type into inputs, click, and navigate.
package dom

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a selector matches nothing
var ErrNotFound = errors.New("element not found")

// Element is a node of the rendered document
type Element interface {
	// Find returns the first descendant matching a CSS selector
	Find(selector string) (Element, error)
	// FindAll returns every descendant matching a CSS selector, in document order
	FindAll(selector string) ([]Element, error)
	// FindXPath returns the first node matching an XPath expression
	FindXPath(expr string) (Element, error)
	// Text returns the element's rendered text
	Text() (string, error)
	// Attribute returns an attribute value and whether it was present
	Attribute(name string) (string, bool, error)
	// Input types text into a form field
	Input(text string) error
	// Click performs a programmatic click
	Click() error
}

// Page is the live document of a browser tab
type Page interface {
	Element
	// Navigate loads a URL
	Navigate(ctx context.Context, url string) error
	// Settle blocks until dynamically loaded content is ready
	Settle(ctx context.Context) error
	// URL returns the address of the loaded document
	URL() string
	// HTML returns the serialized document
	HTML() (string, error)
}

// Has reports whether a CSS selector matches under el
func Has(el Element, selector string) bool {
	_, err := el.Find(selector)
	return err == nil
}
