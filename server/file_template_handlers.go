package server

import (
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"time"
)

//go:embed templates/*
var templateFiles embed.FS

var templateFuncs = template.FuncMap{
	"formatHours": formatHours,
	"formatDate":  formatDate,
	"percent":     func(v float64) string { return fmt.Sprintf("%.0f%%", v) },
}

// ParseTemplate parses a page together with the shared layout from the embedded templates
func ParseTemplate(name string) (*template.Template, error) {
	root, err := fs.Sub(templateFiles, "templates")
	if err != nil {
		return nil, err
	}
	return template.New(name).Funcs(templateFuncs).ParseFS(root, "layout.html", name)
}

func formatHours(hours float64) string {
	return fmt.Sprintf("%.1f", hours)
}

// formatDate accepts a time or a possibly nil time pointer, nil renders as a dash
func formatDate(v any) string {
	switch t := v.(type) {
	case time.Time:
		return t.Format("2 Jan 2006")
	case *time.Time:
		if t == nil {
			return "-"
		}
		return t.Format("2 Jan 2006")
	default:
		return "-"
	}
}
