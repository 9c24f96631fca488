// Package renderer turns tradesim values into markdown for the terminal.
package renderer

import (
	"fmt"
	"io/fs"
	"strings"
	"text/template"
)

// renderTemplate executes the template in mainFile, after parsing each partial
// file under its alias. An empty file name gives an empty partial.
//
// Templates are embedded, a failure is a programming error and is rendered as
// the output instead of being returned.
func renderTemplate(mainFile string, partials map[string]string, data any) string {
	main, err := fs.ReadFile(templates, mainFile)
	if err != nil {
		return fmt.Sprintf("error reading template %q: %v", mainFile, err)
	}
	tmpl, err := template.New(mainFile).Parse(string(main))
	if err != nil {
		return fmt.Sprintf("error parsing template %q: %v", mainFile, err)
	}
	for alias, file := range partials {
		var content []byte
		if file != "" {
			if content, err = fs.ReadFile(templates, file); err != nil {
				return fmt.Sprintf("error reading partial %q: %v", file, err)
			}
		}
		if _, err := tmpl.New(alias).Parse(string(content)); err != nil {
			return fmt.Sprintf("error parsing partial %q as %q: %v", file, alias, err)
		}
	}

	var b strings.Builder
	if err := tmpl.ExecuteTemplate(&b, mainFile, data); err != nil {
		return fmt.Sprintf("error executing template %q: %v", mainFile, err)
	}
	return b.String()
}

// cell escapes s for a markdown table cell.
func cell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.Join(strings.Fields(s), " ")
}
