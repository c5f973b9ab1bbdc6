// Package response собирает JSON-обертку, которую возвращает каждый эндпоинт:
// {"success": true, "data": ...} или {"success": false, "error": "..."}.
package response

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator"
)

// Response обертка любого JSON-ответа.
type Response struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// ErrorResponse описывает ответ с ошибкой для swagger-аннотаций.
type ErrorResponse struct {
	Success bool   `json:"success" example:"false"`
	Error   string `json:"error" example:"invalid request body"`
}

// OK оборачивает data в успешный Response.
func OK(data any) Response {
	return Response{
		Success: true,
		Data:    data,
	}
}

// Error возвращает неуспешный Response с сообщением msg.
func Error(msg string) Response {
	return Response{Error: msg}
}

// ValidationError собирает ошибки валидатора в одно читаемое сообщение.
func ValidationError(errs validator.ValidationErrors) Response {
	var msgs []string

	for _, err := range errs {
		switch err.ActualTag() {
		case "required":
			msgs = append(msgs, fmt.Sprintf("field %s is a required field", err.Field()))
		case "email":
			msgs = append(msgs, fmt.Sprintf("field %s must be a valid email", err.Field()))
		case "oneof":
			msgs = append(msgs, fmt.Sprintf("field %s must be one of [%s]", err.Field(), err.Param()))
		case "min":
			msgs = append(msgs, fmt.Sprintf("field %s must be at least %s", err.Field(), err.Param()))
		case "max":
			msgs = append(msgs, fmt.Sprintf("field %s must be at most %s", err.Field(), err.Param()))
		case "url":
			msgs = append(msgs, fmt.Sprintf("field %s must be a valid url", err.Field()))
		default:
			msgs = append(msgs, fmt.Sprintf("field %s is not valid", err.Field()))
		}
	}
	return Response{Error: strings.Join(msgs, ", ")}
}
