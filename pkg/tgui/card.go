package tgui

import "strings"

// Card is a titled block of lines, rendered as Telegram HTML.
type Card struct {
	title H
	lines []H
}

func NewCard(title string) *Card { return &Card{title: B(title)} }

// Line appends a line made of parts joined by a space.
func (c *Card) Line(parts ...H) *Card {
	c.lines = append(c.lines, Join(" ", parts...))
	return c
}

// Field appends a "label: value" line with the label in bold.
func (c *Card) Field(label, value string) *Card {
	return c.Line(B(label+":"), Esc(value))
}

// Bullet appends a "• " prefixed line.
func (c *Card) Bullet(parts ...H) *Card {
	return c.Line(append([]H{H("•")}, parts...)...)
}

func (c *Card) HTML() H {
	var b strings.Builder
	b.WriteString(c.title.String())
	for _, l := range c.lines {
		b.WriteByte('\n')
		b.WriteString(l.String())
	}
	return H(b.String())
}
