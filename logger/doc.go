// Package logger provides structured logging using zerolog.
//
// It supports JSON and console output, level configuration, and
// component-scoped loggers with structured fields.
//
// # Configuration
//
//	logging:
//	  level: "info"
//	  format: "console"
//
// # Usage
//
//	log := logger.New(&cfg, "inferstream").WithComponent("session")
//	log.Info("stream completed", logger.Fields("tokens", 42))
package logger
