package dto

// Error codes carried in the error envelope.
const (
	CodeValidation         = "ValidationError"
	CodeUnauthorized       = "Unauthorized"
	CodeInvalidCredentials = "InvalidCredentials"
	CodeForbidden          = "Forbidden"
	CodeNotFound           = "NotFound"
	CodeConflict           = "Conflict"
	CodeTicketClosed       = "TicketClosed"
	CodeRateLimited        = "RateLimited"
	CodeInternal           = "Internal"
)

type ErrorBody struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// ErrorResponse is the envelope for every non-2xx response.
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

func NewError(code, message string) ErrorResponse {
	return ErrorResponse{Error: ErrorBody{Code: code, Message: message}}
}

func NewValidationError(fields map[string]string) ErrorResponse {
	return ErrorResponse{Error: ErrorBody{
		Code:    CodeValidation,
		Message: "Validation failed",
		Fields:  fields,
	}}
}

type SuccessResponse struct {
	OK bool `json:"ok"`
}
