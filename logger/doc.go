// Package logger provides structured logging built on zerolog.
// It exposes a Logger wrapper with component tagging and field helpers,
// plus a process-wide global logger initialized from configuration.
package logger
