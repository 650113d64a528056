// Package logx is carebot's structured logging on top of zerolog.
//
// A Service owns the sinks (console, JSON file, Telegram log chat) and can be
// reconfigured at runtime; Loggers derived from it follow every Apply.
// Standalone loggers (NewConsole, NewJSON, Nop) serve bootstrap and tests.
package logx
