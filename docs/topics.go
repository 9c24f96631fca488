// Package docs holds the user documentation of tsim, split in topics.
package docs

import (
	"bytes"
	"embed"
	"fmt"
	"io/fs"
	"path"
	"slices"
	"strings"
)

//go:embed *.md
var docs embed.FS

// readme is the index of topics, it is not a topic itself.
const readme = "readme"

// Index returns the list of topics with a short description of each.
func Index() string {
	content, err := docs.ReadFile(readme + ".md")
	if err != nil {
		return ""
	}
	return string(content)
}

// Topic returns the content of a topic. "*" returns all topics.
func Topic(topic string) (string, error) {
	if topic == "*" {
		return Topics(topic)
	}
	content, err := docs.ReadFile(topic + ".md")
	if err != nil || topic == readme {
		return "", fmt.Errorf("topic %q not found, run 'tsim topic' for the list", topic)
	}
	return string(content), nil
}

// Topics returns the content of several topics, one after the other. "*"
// stands for all topics.
func Topics(topics ...string) (string, error) {
	var b bytes.Buffer
	for _, topic := range topics {
		names := []string{topic}
		if topic == "*" {
			names = All()
		}
		for _, name := range names {
			content, err := Topic(name)
			if err != nil {
				return "", err
			}
			b.WriteString(content)
			b.WriteString("\n")
		}
	}
	return b.String(), nil
}

// All returns the name of every topic, sorted.
func All() []string {
	var topics []string
	entries, err := fs.ReadDir(docs, ".")
	if err != nil {
		return nil
	}
	for _, e := range entries {
		if e.IsDir() || path.Ext(e.Name()) != ".md" {
			continue
		}
		if name := strings.TrimSuffix(e.Name(), ".md"); name != readme {
			topics = append(topics, name)
		}
	}
	slices.Sort(topics)
	return topics
}
