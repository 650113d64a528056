// Package tgui builds Telegram HTML messages. Values of type H are already
// escaped for ParseMode="HTML".
package tgui
