package response

import (
	"github.com/gofiber/fiber/v2"

	"github.com/makeasinger/musicgen/internal/apierr"
)

// Error codes
const (
	CodeValidationError = "VALIDATION_ERROR"
	CodeUnauthorized    = "UNAUTHORIZED"
	CodeForbidden       = "FORBIDDEN"
	CodeNotFound        = "NOT_FOUND"
	CodeRateLimited     = "RATE_LIMITED"
	CodeJobFailed       = "JOB_FAILED"
	CodeServiceError    = "SERVICE_ERROR"
	CodeUpstreamError   = "UPSTREAM_ERROR"
	CodeTimeout         = "TIMEOUT"
)

type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// EnvelopeResponse is the {code, msg, data} body of the task proxy routes,
// mirroring the upstream API.
type EnvelopeResponse struct {
	Code int         `json:"code"`
	Msg  string      `json:"msg"`
	Data interface{} `json:"data,omitempty"`
}

func Error(c *fiber.Ctx, status int, code, message string, details interface{}) error {
	return c.Status(status).JSON(ErrorResponse{
		Error: ErrorDetail{
			Code:    code,
			Message: message,
			Details: details,
		},
	})
}

func ValidationError(c *fiber.Ctx, message string, details interface{}) error {
	return Error(c, fiber.StatusBadRequest, CodeValidationError, message, details)
}

func Unauthorized(c *fiber.Ctx, message string) error {
	return Error(c, fiber.StatusUnauthorized, CodeUnauthorized, message, nil)
}

func Forbidden(c *fiber.Ctx, message string) error {
	return Error(c, fiber.StatusForbidden, CodeForbidden, message, nil)
}

func NotFound(c *fiber.Ctx, message string) error {
	return Error(c, fiber.StatusNotFound, CodeNotFound, message, nil)
}

func RateLimited(c *fiber.Ctx) error {
	return Error(c, fiber.StatusTooManyRequests, CodeRateLimited, "Rate limit exceeded", nil)
}

func ServiceError(c *fiber.Ctx, message string) error {
	return Error(c, fiber.StatusInternalServerError, CodeServiceError, message, nil)
}

// APIError renders an *apierr.Error with the status matching its kind.
func APIError(c *fiber.Ctx, e *apierr.Error) error {
	switch e.Kind {
	case apierr.KindValidation:
		return ValidationError(c, e.Message, e.Details)
	case apierr.KindTimeout:
		return Error(c, fiber.StatusGatewayTimeout, CodeTimeout, e.Message, nil)
	case apierr.KindNetwork, apierr.KindRemote, apierr.KindExtraction:
		return Error(c, fiber.StatusBadGateway, CodeUpstreamError, e.Message, e.Details)
	}
	return ServiceError(c, e.Message)
}

// Envelope writes a {code, msg, data} body.
func Envelope(c *fiber.Ctx, status, code int, msg string, data interface{}) error {
	return c.Status(status).JSON(EnvelopeResponse{Code: code, Msg: msg, Data: data})
}

// EnvelopeOK writes a success envelope.
func EnvelopeOK(c *fiber.Ctx, data interface{}) error {
	return Envelope(c, fiber.StatusOK, fiber.StatusOK, "success", data)
}

// EnvelopeError writes the envelope of a failed proxy call. The envelope
// code is the ApiError code; the HTTP status follows the error kind.
func EnvelopeError(c *fiber.Ctx, e *apierr.Error) error {
	status := fiber.StatusInternalServerError
	switch e.Kind {
	case apierr.KindValidation:
		status = fiber.StatusBadRequest
	case apierr.KindTimeout:
		status = fiber.StatusGatewayTimeout
	case apierr.KindNetwork, apierr.KindExtraction:
		status = fiber.StatusBadGateway
	case apierr.KindRemote:
		status = fiber.StatusBadGateway
		if e.Code >= 400 && e.Code < 600 {
			status = e.Code
		}
	}
	code := e.Code
	if code == apierr.CodeNoResponse {
		code = status
	}
	return c.Status(status).JSON(EnvelopeResponse{Code: code, Msg: e.Message, Data: detailsData(e)})
}

func detailsData(e *apierr.Error) interface{} {
	if e.Details == nil {
		return nil
	}
	return fiber.Map{"details": e.Details}
}

func OK(c *fiber.Ctx, data interface{}) error {
	return c.JSON(data)
}

func Created(c *fiber.Ctx, data interface{}) error {
	return c.Status(fiber.StatusCreated).JSON(data)
}

func Accepted(c *fiber.Ctx, data interface{}) error {
	return c.Status(fiber.StatusAccepted).JSON(data)
}

func NoContent(c *fiber.Ctx) error {
	return c.SendStatus(fiber.StatusNoContent)
}
