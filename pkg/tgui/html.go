package tgui

import (
	"html"
	"strings"
)

// ParseModeHTML is the Telegram parse mode for H text.
const ParseModeHTML = "HTML"

// H is HTML that is safe to send with ParseModeHTML.
type H string

func (h H) String() string { return string(h) }

// Esc escapes plain text.
func Esc(s string) H { return H(html.EscapeString(s)) }

func wrap(tag string, inner H) H { return H("<" + tag + ">" + inner.String() + "</" + tag + ">") }

func B(s string) H    { return wrap("b", Esc(s)) }
func I(s string) H    { return wrap("i", Esc(s)) }
func Code(s string) H { return wrap("code", Esc(s)) }

// Join joins non-blank parts with sep. sep is escaped.
func Join(sep string, parts ...H) H {
	ss := make([]string, 0, len(parts))
	for _, p := range parts {
		if strings.TrimSpace(p.String()) == "" {
			continue
		}
		ss = append(ss, p.String())
	}
	return H(strings.Join(ss, html.EscapeString(sep)))
}
