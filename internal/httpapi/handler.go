// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 AuthLib Contributors

// Package httpapi exposes the auth service as JSON over HTTP. Every endpoint
// answers with the operation's auth.Result.
package httpapi

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/oklog/ulid/v2"

	"github.com/authlib/authlib/internal/auth"
)

// Routes.
const (
	PathUsers         = "/v1/users"
	PathDeleteUser    = "/v1/users/delete"
	PathLogin         = "/v1/login"
	PathResetRequest  = "/v1/password-reset/request"
	PathResetVerify   = "/v1/password-reset/verify"
	PathResetComplete = "/v1/password-reset/complete"
)

const malformedBodyError = "malformed request body"

// Service is the subset of *auth.Service the API calls.
type Service interface {
	AddUser(ctx context.Context, userID, password string) auth.Result
	DeleteUser(ctx context.Context, userID string) auth.Result
	Login(ctx context.Context, userID, password string) auth.Result
	RequestPasswordReset(ctx context.Context, userID string) auth.Result
	VerifyResetToken(ctx context.Context, userID, token string) auth.Result
	ResetPassword(ctx context.Context, userID, token, newPassword string) auth.Result
}

type credentialsRequest struct {
	UserID   string `json:"user_id"`
	Password string `json:"password"`
}

type userRequest struct {
	UserID string `json:"user_id"`
}

type tokenRequest struct {
	UserID string `json:"user_id"`
	Token  string `json:"reset_token"`
}

type completeRequest struct {
	UserID      string `json:"user_id"`
	Token       string `json:"reset_token"`
	NewPassword string `json:"new_password"`
}

type handler struct {
	svc    Service
	logger *slog.Logger
}

// NewHandler builds the API router.
func NewHandler(svc Service, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	h := &handler{svc: svc, logger: logger}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: func() string { return ulid.Make().String() },
	}))
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			logger.DebugContext(c.Request().Context(), "http request",
				"request_id", v.RequestID,
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency", v.Latency)
			return nil
		},
	}))

	e.POST(PathUsers, h.addUser)
	e.POST(PathDeleteUser, h.deleteUser)
	e.POST(PathLogin, h.login)
	e.POST(PathResetRequest, h.requestReset)
	e.POST(PathResetVerify, h.verifyReset)
	e.POST(PathResetComplete, h.completeReset)

	return e
}

func (h *handler) addUser(c echo.Context) error {
	var req credentialsRequest
	if err := c.Bind(&req); err != nil {
		return h.malformed(c, err)
	}
	return respond(c, h.svc.AddUser(c.Request().Context(), req.UserID, req.Password))
}

func (h *handler) deleteUser(c echo.Context) error {
	var req userRequest
	if err := c.Bind(&req); err != nil {
		return h.malformed(c, err)
	}
	return respond(c, h.svc.DeleteUser(c.Request().Context(), req.UserID))
}

func (h *handler) login(c echo.Context) error {
	var req credentialsRequest
	if err := c.Bind(&req); err != nil {
		return h.malformed(c, err)
	}
	return respond(c, h.svc.Login(c.Request().Context(), req.UserID, req.Password))
}

func (h *handler) requestReset(c echo.Context) error {
	var req userRequest
	if err := c.Bind(&req); err != nil {
		return h.malformed(c, err)
	}
	return respond(c, h.svc.RequestPasswordReset(c.Request().Context(), req.UserID))
}

func (h *handler) verifyReset(c echo.Context) error {
	var req tokenRequest
	if err := c.Bind(&req); err != nil {
		return h.malformed(c, err)
	}
	return respond(c, h.svc.VerifyResetToken(c.Request().Context(), req.UserID, req.Token))
}

func (h *handler) completeReset(c echo.Context) error {
	var req completeRequest
	if err := c.Bind(&req); err != nil {
		return h.malformed(c, err)
	}
	return respond(c, h.svc.ResetPassword(c.Request().Context(), req.UserID, req.Token, req.NewPassword))
}

func (h *handler) malformed(c echo.Context, err error) error {
	h.logger.DebugContext(c.Request().Context(), "request body rejected",
		"path", c.Path(),
		"error", err)
	return respond(c, auth.Failure(auth.CodeInvalidFormat, malformedBodyError))
}

func respond(c echo.Context, res auth.Result) error {
	return c.JSON(StatusFor(res), res)
}

// StatusFor maps a Result to its HTTP status code.
func StatusFor(res auth.Result) int {
	if res.Succeeded {
		return http.StatusOK
	}
	switch res.Kind {
	case auth.KindValidation, auth.KindToken:
		return http.StatusBadRequest
	case auth.KindAuth:
		return http.StatusUnauthorized
	case auth.KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
