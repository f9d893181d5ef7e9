package model

// FieldError reports a validation failure tied to a single input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"error"`
}

func (e *FieldError) Error() string {
	return e.Field + ": " + e.Message
}
