// Package validation checks configuration and request values.
//
// Struct tags cover most rules:
//
//	type ModelRef struct {
//	    Name        string `mapstructure:"name" validate:"required"`
//	    ContextSize int    `mapstructure:"ctx" validate:"gte=0"`
//	}
//	err := validation.Validate(ref)
//
// Rules the tags cannot express go through a Validator:
//
//	err := validation.New().
//	    Check(dialectKnown, "dialect", "unknown dialect").
//	    Err()
//
// Both report INVALID_INPUT AppErrors listing every failing field.
package validation
