package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/srishtiii28/alphascan/internal/api/response"
	"github.com/srishtiii28/alphascan/internal/domain"
	"github.com/srishtiii28/alphascan/internal/service"
)

var validate = validator.New()

// AuthHandler handles the OTP login endpoints
type AuthHandler struct {
	authService *service.AuthService
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// Register starts the OTP flow for a phone number
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var input domain.UserCreate
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}

	if err := validate.Struct(input); err != nil {
		response.BadRequest(w, validationErrors(err))
		return
	}

	if err := h.authService.Register(r.Context(), input); err != nil {
		response.InternalError(w, err.Error())
		return
	}

	response.OK(w, map[string]string{
		"status": "otp_sent",
	})
}

// Verify redeems the OTP and returns an API token
func (h *AuthHandler) Verify(w http.ResponseWriter, r *http.Request) {
	var input domain.UserVerify
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}

	if err := validate.Struct(input); err != nil {
		response.BadRequest(w, validationErrors(err))
		return
	}

	token, err := h.authService.Verify(r.Context(), input)
	if err != nil {
		if errors.Is(err, service.ErrNoPendingLogin) {
			response.BadRequest(w, err.Error())
			return
		}
		response.Unauthorized(w, err.Error())
		return
	}

	response.Created(w, map[string]string{
		"user_id": input.UserID,
		"token":   token,
	})
}

// validationErrors turns validator failures into a field to message map.
func validationErrors(err error) any {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}

	fields := make(map[string]string)
	for _, e := range verrs {
		switch e.Tag() {
		case "required":
			fields[e.Field()] = "field is required"
		case "e164":
			fields[e.Field()] = "must be a phone number in international format"
		case "url":
			fields[e.Field()] = "must be a valid URL"
		case "min":
			fields[e.Field()] = "must be at least " + e.Param() + " characters"
		case "max":
			fields[e.Field()] = "must be at most " + e.Param() + " characters"
		default:
			fields[e.Field()] = "validation failed on " + e.Tag()
		}
	}
	return fields
}
