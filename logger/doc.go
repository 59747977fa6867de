// Package logger provides structured logging for osal packages using zerolog.
//
// Every osal package logs through a component logger obtained from Get, so
// the output of the process launcher, the lock manager and the resource
// arena can be filtered by the "component" field.
//
// # Configuration
//
//	logging:
//	  level: "debug"
//	  format: "json"
//
// # Usage
//
//	log := logger.Get("process")
//	log.Debug("launched", logger.Fields("pid", pid))
package logger
