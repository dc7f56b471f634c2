// Package e2e runs the full pipeline over a corpus of generated documents in
// a managed directory: extraction, embedding, indexing, search and maintenance.
package e2e

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Document is one corpus entry. Name is the file name in the managed directory.
type Document struct {
	Name    string
	Title   string
	Content string
}

// QueryTestCase defines a query and the document names that must appear in its results.
type QueryTestCase struct {
	Query         string
	ExpectedNames []string
	Description   string
}

// Corpus holds documents and query test cases.
type Corpus struct {
	Documents    []Document
	TestCases    []QueryTestCase
	TotalDocs    int
	TotalQueries int
}

// BuildCorpus returns a corpus of n documents whose files cycle through the
// supported extensions. Each document carries a signature phrase so a query
// can assert that the right file comes back.
func BuildCorpus(n int) *Corpus {
	docs := buildDocuments(n)
	cases := buildQueryTestCases(docs)
	return &Corpus{
		Documents:    docs,
		TestCases:    cases,
		TotalDocs:    len(docs),
		TotalQueries: len(cases),
	}
}

// Departments and document kinds combine into distinct signature phrases.
// Neither list contains a word that is a substring of another entry.
var (
	departments = []string{
		"finance", "legal", "marketing", "engineering", "procurement",
		"logistics", "research", "compliance", "facilities", "training",
	}
	documentKinds = []string{
		"budget", "contract", "audit", "roadmap", "invoice",
		"forecast", "policy", "inventory", "survey", "handbook",
	}
)

func buildDocuments(n int) []Document {
	out := make([]Document, 0, n)
	for i := 0; i < n; i++ {
		dept, kind := signature(i)
		title := capitalize(dept) + " " + capitalize(kind)
		if i >= len(departments)*len(documentKinds) {
			title = fmt.Sprintf("%s (%d)", title, i+1)
		}
		ext := SupportedFileExtensions[i%len(SupportedFileExtensions)]
		content := fmt.Sprintf("This %s %s was prepared by the %s department for quarter %d. "+
			"Questions about the %s should be sent to the department office.",
			dept, kind, dept, i%4+1, kind)
		out = append(out, Document{
			Name:    fmt.Sprintf("doc-%03d%s", i+1, ext),
			Title:   title,
			Content: content,
		})
	}
	return out
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func signature(i int) (dept, kind string) {
	d := i % len(departments)
	k := (i / len(departments)) % len(documentKinds)
	return departments[d], documentKinds[k]
}

// buildQueryTestCases returns one case per distinct signature phrase; the
// document carrying it is the only one matching every query term.
func buildQueryTestCases(docs []Document) []QueryTestCase {
	var cases []QueryTestCase
	used := make(map[string]bool)
	for i, d := range docs {
		dept, kind := signature(i)
		phrase := dept + " " + kind
		if used[phrase] || !containsPhrase(d, phrase) {
			continue
		}
		used[phrase] = true
		cases = append(cases, QueryTestCase{
			Query:         phrase,
			ExpectedNames: []string{d.Name},
			Description:   fmt.Sprintf("query %q should return %s", phrase, d.Name),
		})
	}
	return cases
}

func containsPhrase(d Document, phrase string) bool {
	return strings.Contains(d.Title, phrase) || strings.Contains(d.Content, phrase)
}

// Text is the document body as written to its file.
func (d Document) Text() string {
	return d.Title + "\n\n" + d.Content
}

// WriteFiles writes every document into dir in its file format.
func (c *Corpus) WriteFiles(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	for _, d := range c.Documents {
		data, err := FileBytes(filepath.Ext(d.Name), d.Text())
		if err != nil {
			return fmt.Errorf("build %s: %w", d.Name, err)
		}
		if err := os.WriteFile(filepath.Join(dir, d.Name), data, 0644); err != nil {
			return err
		}
	}
	return nil
}
