// Package validation checks configuration structs and request inputs.
//
// Struct tag validation uses go-playground/validator and reports failures as
// errors.Validation with per-field details. Request identifiers such as trip
// and stop ids are checked with the chaining Validator.
//
//	v := validation.New()
//	v.Identifier("trip_id", tripID)
//	if err := v.Validate(); err != nil { ... }
package validation
