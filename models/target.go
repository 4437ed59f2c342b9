package models

import (
	"regexp"
	"strings"
)

// TargetJob is one listing to scrape and where its rows go
type TargetJob struct {
	Name   string // Company name, used for logs and derived output names
	URL    string
	Output string // Output destination name; derived from Name when empty
}

var nonWordRun = regexp.MustCompile(`\W+`)

// OutputName returns the explicit output name or one derived from the target name
func (t TargetJob) OutputName() string {
	if t.Output != "" {
		return t.Output
	}
	return DeriveOutputName(t.Name)
}

// DeriveOutputName collapses non-alphanumeric runs to "-" and lower-cases.
// "Acme, Inc." becomes "acme-inc-.csv".
func DeriveOutputName(name string) string {
	return strings.ToLower(nonWordRun.ReplaceAllString(name, "-")) + ".csv"
}

// PageState tracks one target's progress through the listing.
// A fresh value is created for every target.
type PageState struct {
	Page             int  // 1-based page number currently loaded
	Index            int  // Running review index, diagnostics only
	DateLimitReached bool // Set once a harvested page crosses the date bound
}

// NewPageState returns the initial state for a target
func NewPageState() *PageState {
	return &PageState{Page: 1}
}
