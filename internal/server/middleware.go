package server

// classifyErrorForLog buckets handler errors for the request log without
// rendering a response; ErrorHandlingMiddleware owns the response.
func classifyErrorForLog(err error) (string, string) {
	if err == nil {
		return "", ""
	}
	if vErr := asValidationErrors(err); vErr != nil {
		code := ""
		if len(vErr.Errors) > 0 {
			code = vErr.Errors[0].Code
		}
		return "validation_error", code
	}
	if asShortfallError(err) != nil {
		return "conflict", "insufficient_balance"
	}
	switch {
	case isValidationError(err):
		return "validation_error", err.Error()
	case isConflictError(err):
		return "conflict", conflictErrorType(err)
	case isNotFoundError(err):
		return "not_found", "not_found"
	default:
		return "internal_error", "internal_error"
	}
}
