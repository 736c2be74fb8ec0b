// Package view holds the types exchanged between page handlers, the router and the layout.
package view

import "html/template"

// Fragment is a rendered content block mounted into the layout's main area
type Fragment struct {
	Title string
	Body  template.HTML
	// Status is the HTTP status to answer with; zero means 200
	Status int
}

// StatusCode returns the effective HTTP status
func (f *Fragment) StatusCode() int {
	if f == nil || f.Status == 0 {
		return 200
	}
	return f.Status
}
