package parser

import (
	"fmt"
	"strings"
)

// card describes one review card for test pages
type card struct {
	Featured  bool
	Date      string
	Title     string
	Author    string // authorJobTitle text; "" omits the author block
	Location  string
	Years     string
	Helpful   string
	Pros      []string
	Cons      []string
	Advice    []string
	Overall   string
	Subs      []string
	Truncated bool // Pros block carries a "Show More" link
}

func (c card) html() string {
	var b strings.Builder
	b.WriteString(`<li class="empReview">`)
	if c.Featured {
		b.WriteString(`<span class="featuredFlag">Featured Review</span>`)
	}
	if c.Date != "" {
		fmt.Fprintf(&b, `<time class="date" datetime="%s">%s</time>`, c.Date, c.Date)
	}
	if c.Title != "" {
		fmt.Fprintf(&b, `<h2><a class="summary">"%s"</a></h2>`, c.Title)
	}
	if c.Overall != "" || len(c.Subs) > 0 {
		b.WriteString(`<div class="gdStars">`)
		if c.Overall != "" {
			fmt.Fprintf(&b, `<span class="rating"><span class="value-title" title="%s"></span></span>`, c.Overall)
		}
		if len(c.Subs) > 0 {
			b.WriteString(`<div class="subRatings"><ul>`)
			for _, s := range c.Subs {
				fmt.Fprintf(&b, `<li><div>Category</div><span class="gdBars" title="%s"></span></li>`, s)
			}
			b.WriteString(`</ul></div>`)
		}
		b.WriteString(`</div>`)
	}
	if c.Author != "" {
		fmt.Fprintf(&b, `<div class="authorInfo"><span class="authorJobTitle">%s</span>`, c.Author)
		if c.Location != "" {
			fmt.Fprintf(&b, `<span class="authorLocation">%s</span>`, c.Location)
		}
		b.WriteString(`</div>`)
	}
	if c.Years != "" {
		fmt.Fprintf(&b, `<p class="mainText">%s</p>`, c.Years)
	}
	for i, block := range [][]string{c.Pros, c.Cons, c.Advice} {
		if block == nil {
			continue
		}
		label := []string{"Pros", "Cons", "Advice to Management"}[i]
		fmt.Fprintf(&b, `<div class="mt-md"><p class="strong">%s</p>`, label)
		for _, p := range block {
			fmt.Fprintf(&b, `<p>%s</p>`, p)
		}
		if i == 0 && c.Truncated {
			b.WriteString(`<span class="link">Show More</span>`)
		}
		b.WriteString(`</div>`)
	}
	if c.Helpful != "" {
		fmt.Fprintf(&b, `<span class="helpfulCount">%s</span>`, c.Helpful)
	}
	b.WriteString(`</li>`)
	return b.String()
}

// fullCard has every field populated
func fullCard(title, date string) card {
	return card{
		Date:     date,
		Title:    title,
		Author:   "Current Employee - Software Engineer",
		Location: "Austin, TX",
		Years:    "I have been working at Acme full-time for more than 3 years",
		Helpful:  "Helpful (12)",
		Pros:     []string{"Good pay"},
		Cons:     []string{"Long hours"},
		Advice:   []string{"Listen more"},
		Overall:  "4.0",
		Subs:     []string{"3.0", "4.0", "3.5", "5.0", "2.0"},
	}
}

func listingHTML(cards ...card) string {
	var b strings.Builder
	b.WriteString(`<html><body><ol class="empReviews">`)
	for _, c := range cards {
		b.WriteString(c.html())
	}
	b.WriteString(`</ol></body></html>`)
	return b.String()
}
