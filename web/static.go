package web

import (
	"embed"
	"html/template"
	"io"
)

//go:embed index.html
var indexHTML string

//go:embed js/*
var staticContent embed.FS

var indexTemplate = template.Must(template.New("index.html").Parse(indexHTML))

func GetIndexHTML() string {
	return indexHTML
}

func GetStaticContent() embed.FS {
	return staticContent
}

// WriteIndex renders the index page with data, already serialized as JSON.
func WriteIndex(w io.Writer, dataJSON string) error {
	return indexTemplate.Execute(w, dataJSON)
}
