package tgui

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEscAndTags(t *testing.T) {
	assert.Equal(t, H("a &lt;b&gt; &amp; c"), Esc("a <b> & c"))
	assert.Equal(t, H("<b>x&lt;y</b>"), B("x<y"))
	assert.Equal(t, H("<code>1 &gt; 0</code>"), Code("1 > 0"))
}

func TestJoinSkipsBlank(t *testing.T) {
	assert.Equal(t, H("a | b"), Join(" | ", Esc("a"), "", H(" "), Esc("b")))
	assert.Equal(t, H(""), Join(","))
}

func TestTruncRunes(t *testing.T) {
	assert.Equal(t, "héllo", TruncRunes("héllo", 5))
	assert.Equal(t, "hé…", TruncRunes("héllo", 3))
	assert.Equal(t, "", TruncRunes("héllo", 0))
}

func TestCard(t *testing.T) {
	c := NewCard("Status <1>").
		Field("uptime", "5m").
		Bullet(B("heartbeat"), Esc("ok"))
	assert.Equal(t, H("<b>Status &lt;1&gt;</b>\n<b>uptime:</b> 5m\n• <b>heartbeat</b> ok"), c.HTML())
}
