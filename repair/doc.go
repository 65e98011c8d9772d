// Package repair validates generated text against a structural grammar and
// fixes it with at most one repair request.
//
//	text, err := repair.ValidateAndRepair(ctx, raw, repair.JSON{}, requester)
//
// Code fences around the text are removed before each validation. Valid
// text never reaches the requester. Invalid text is sent once; if the
// response still does not parse, the result is a VALIDATION_FAILED error and
// no further request is made. This is the only retry in the module.
package repair
