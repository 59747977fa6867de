// Package validation checks configuration values and caller input.
//
// It supports struct tag validation through go-playground/validator and
// programmatic validation with error collection. Both report failures as an
// INVALID_INPUT AppError whose "fields" detail lists every failed field.
//
//	type ShellConfig struct {
//	    Path string `mapstructure:"path" validate:"required"`
//	}
//	err := validation.Validate(cfg)
//
//	v := validation.New()
//	v.Required("shell.path", cfg.Path).NoNUL("shell.path", cfg.Path)
//	err := v.Validate()
package validation
