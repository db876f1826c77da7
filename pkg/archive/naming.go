// Package archive packages rendered cards into a single ZIP.
package archive

import (
	"regexp"
	"strings"

	"github.com/noah-isme/student-card-api/internal/models"
)

const (
	// Folder is the directory every card is placed under inside the archive.
	Folder = "carteirinhas"
	// ArchiveName is the download name of a packaged batch.
	ArchiveName = "carteirinhas-estudantes.zip"
	// ContentType is the MIME type of a packaged batch.
	ContentType = "application/zip"
)

var (
	whitespace     = regexp.MustCompile(`[\s\p{Z}]+`)
	pathSeparators = strings.NewReplacer("/", "-", "\\", "-")
)

// Slugify lowercases name, replaces each whitespace run with "-" and turns
// path separators into "-" so a slug is always a single path element.
func Slugify(name string) string {
	slug := whitespace.ReplaceAllString(strings.ToLower(name), "-")
	return pathSeparators.Replace(slug)
}

// slugFor falls back to the student ID when the name yields no usable slug.
func slugFor(student models.Student) string {
	slug := Slugify(student.Name)
	switch slug {
	case "", ".", "..":
		return student.ID
	}
	return slug
}

// CardFilename is the download name of a single card.
func CardFilename(student models.Student) string {
	return "carteirinha-" + slugFor(student) + ".png"
}

// EntryNames returns the archive path for each student, in order. The first
// holder of a slug keeps "<slug>.png"; later holders get "<slug>-<id>.png".
// An empty, "." or ".." slug falls back to the student ID.
func EntryNames(students []models.Student) []string {
	names := make([]string, len(students))
	taken := make(map[string]struct{}, len(students))
	for i, student := range students {
		slug := slugFor(student)
		name := Folder + "/" + slug + ".png"
		if _, dup := taken[name]; dup {
			name = Folder + "/" + slug + "-" + student.ID + ".png"
		}
		taken[name] = struct{}{}
		names[i] = name
	}
	return names
}
