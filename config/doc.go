// Package config loads osal settings.
//
// Settings come from an optional osal.yml, an optional .env file and
// OSAL_-prefixed environment variables, in increasing priority. Nested keys
// map to underscores: OSAL_SHELL_PATH sets shell.path and OSAL_LOCKS_DIR
// sets locks.dir.
//
//	cfg, err := config.Load()
//	cfg, err := config.Load(config.WithConfigFile("/etc/osal.yml"))
package config
