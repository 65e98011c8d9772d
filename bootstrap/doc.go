// Package bootstrap runs a command's task with config validation, logging,
// signal handling and shutdown hooks.
package bootstrap
