package models

import "strings"

type Poem struct {
	Title     string `json:"title"`
	Author    string `json:"author"`
	Text      string `json:"text"`
	LineCount int    `json:"lineCount"`
}

// Normalize unescapes literal \n sequences left over from form input
// and recomputes the derived line count.
func (p *Poem) Normalize() {
	p.Text = strings.ReplaceAll(p.Text, `\n`, "\n")
	p.LineCount = len(strings.Split(p.Text, "\n"))
}
