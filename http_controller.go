package identity

import (
	"fmt"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/gofiber/fiber/v2"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
)

// AuthControllerRoutes are the paths the controller mounts.
type AuthControllerRoutes struct {
	Register       string
	Login          string
	ConfirmEmail   string
	ForgotPassword string
	ResetPassword  string
}

// AuthController exposes the account lifecycle over HTTP as a JSON API.
type AuthController struct {
	Debug    bool
	Logger   Logger
	Repo     RepositoryManager
	Auther   Authenticator
	Routes   *AuthControllerRoutes
	Register *RegisterAccountHandler
	Confirm  *ConfirmEmailHandler
	Forgot   *InitializePasswordResetHandler
	Reset    *FinalizePasswordResetHandler
}

type AuthControllerOption func(*AuthController) *AuthController

func WithControllerLogger(logger Logger) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		if logger != nil {
			c.Logger = logger
		}
		return c
	}
}

func WithControllerRepo(repo RepositoryManager) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Repo = repo
		return c
	}
}

func WithControllerAuther(auther Authenticator) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Auther = auther
		return c
	}
}

func WithControllerDebug(debug bool) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Debug = debug
		return c
	}
}

func WithRegisterHandler(h *RegisterAccountHandler) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Register = h
		return c
	}
}

func WithConfirmHandler(h *ConfirmEmailHandler) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Confirm = h
		return c
	}
}

func WithForgotHandler(h *InitializePasswordResetHandler) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Forgot = h
		return c
	}
}

func WithResetHandler(h *FinalizePasswordResetHandler) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Reset = h
		return c
	}
}

func NewAuthController(opts ...AuthControllerOption) *AuthController {
	c := &AuthController{
		Logger: defLogger{},
		Routes: &AuthControllerRoutes{
			Register:       "/auth/register",
			Login:          "/auth/login",
			ConfirmEmail:   "/auth/confirm-email",
			ForgotPassword: "/auth/forgot-password",
			ResetPassword:  "/auth/reset-password",
		},
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Repo == nil {
		panic("Missing RepositoryManager in auth controller...")
	}

	if c.Auther == nil {
		panic("Missing Authenticator in auth controller...")
	}

	if c.Register == nil {
		c.Register = NewRegisterAccountHandler(c.Repo)
	}
	if c.Confirm == nil {
		c.Confirm = NewConfirmEmailHandler(c.Repo)
	}
	if c.Forgot == nil {
		c.Forgot = NewInitializePasswordResetHandler(c.Repo)
	}
	if c.Reset == nil {
		c.Reset = NewFinalizePasswordResetHandler(c.Repo)
	}

	return c
}

// RegisterAuthRoutes mounts the controller on the given fiber app.
func RegisterAuthRoutes(app *fiber.App, controller *AuthController) {
	app.Post(controller.Routes.Register, controller.RegistrationCreate)
	app.Post(controller.Routes.Login, controller.LoginPost)
	app.Get(controller.Routes.ConfirmEmail, controller.ConfirmEmailGet)
	app.Post(controller.Routes.ForgotPassword, controller.ForgotPasswordPost)
	app.Post(controller.Routes.ResetPassword, controller.ResetPasswordPost)
}

// RegistrationCreatePayload is the registration request body
type RegistrationCreatePayload struct {
	Name     string `form:"name" json:"name"`
	Email    string `form:"email" json:"email"`
	Password string `form:"password" json:"password"`
}

// Validate will validate the payload
func (r RegistrationCreatePayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Length(0, 200)),
		validation.Field(&r.Email, validation.Required, validation.Length(6, 100), is.Email),
		validation.Field(&r.Password, validation.Required, validation.Length(8, 100)),
	)
}

func (a *AuthController) RegistrationCreate(ctx *fiber.Ctx) error {
	payload := new(RegistrationCreatePayload)

	if err := ctx.BodyParser(payload); err != nil {
		a.Logger.Error("register account parse payload: %v", err)
		return a.renderError(ctx, goerrors.Wrap(err, goerrors.CategoryBadInput, "failed to parse body").
			WithCode(goerrors.CodeBadRequest))
	}

	if err := payload.Validate(); err != nil {
		a.Logger.Error("register account validate payload: %v", err)
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":      "validation failed",
			"validation": FormatValidationErrorToMap(err),
		})
	}

	if a.Debug {
		fmt.Println("======= AUTH REGISTER ======")
		fmt.Println(print.MaybePrettyJSON(payload))
		fmt.Println("============================")
	}

	var res *RegisterAccountResponse

	req := RegisterAccountMessage{
		Name:     payload.Name,
		Email:    normalizeEmail(payload.Email),
		Password: payload.Password,
		OnResponse: func(resp *RegisterAccountResponse) {
			res = resp
		},
	}

	if err := a.Register.Execute(ctx.Context(), req); err != nil {
		a.Logger.Error("register account error: %v", err)
		return a.renderError(ctx, err)
	}

	return ctx.Status(fiber.StatusCreated).JSON(res.Account)
}

// LoginRequest is the login request body
type LoginRequest struct {
	Email    string `form:"email" json:"email"`
	Password string `form:"password" json:"password"`
}

// Validate will run validation rules
func (r LoginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Password, validation.Required),
	)
}

func (a *AuthController) LoginPost(ctx *fiber.Ctx) error {
	payload := new(LoginRequest)

	if err := ctx.BodyParser(payload); err != nil {
		a.Logger.Error("login parse payload: %v", err)
		return a.renderError(ctx, goerrors.Wrap(err, goerrors.CategoryBadInput, "failed to parse body").
			WithCode(goerrors.CodeBadRequest))
	}

	if err := payload.Validate(); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":      "validation failed",
			"validation": FormatValidationErrorToMap(err),
		})
	}

	token, err := a.Auther.Login(ctx.Context(), normalizeEmail(payload.Email), payload.Password)
	if err != nil {
		a.Logger.Error("login error: %v", err)
		return a.renderError(ctx, err)
	}

	return ctx.JSON(fiber.Map{
		"accessToken": token,
	})
}

func (a *AuthController) ConfirmEmailGet(ctx *fiber.Ctx) error {
	token := ctx.Query("token")

	var res *ConfirmEmailResponse

	req := ConfirmEmailMessage{
		Token: token,
		OnResponse: func(resp *ConfirmEmailResponse) {
			res = resp
		},
	}

	if err := a.Confirm.Execute(ctx.Context(), req); err != nil {
		a.Logger.Error("confirm email error: %v", err)
		return a.renderError(ctx, err)
	}

	if a.Debug {
		fmt.Println("======= CONFIRM EMAIL ======")
		fmt.Println(print.MaybePrettyJSON(res))
		fmt.Println("============================")
	}

	return ctx.JSON(fiber.Map{
		"message": "email confirmed",
	})
}

// ForgotPasswordPayload is the forgot-password request body
type ForgotPasswordPayload struct {
	Email string `form:"email" json:"email"`
}

// Validate will validate the payload
func (r ForgotPasswordPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
	)
}

func (a *AuthController) ForgotPasswordPost(ctx *fiber.Ctx) error {
	payload := new(ForgotPasswordPayload)

	if err := ctx.BodyParser(payload); err != nil {
		a.Logger.Error("forgot password parse payload: %v", err)
		return a.renderError(ctx, goerrors.Wrap(err, goerrors.CategoryBadInput, "failed to parse body").
			WithCode(goerrors.CodeBadRequest))
	}

	if err := payload.Validate(); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":      "validation failed",
			"validation": FormatValidationErrorToMap(err),
		})
	}

	req := InitializePasswordResetMessage{
		Email: normalizeEmail(payload.Email),
	}

	if err := a.Forgot.Execute(ctx.Context(), req); err != nil {
		a.Logger.Error("forgot password error: %v", err)
		return a.renderError(ctx, err)
	}

	// same body whether or not the email matched an account
	return ctx.JSON(fiber.Map{
		"message": "if the email exists, a reset link has been sent",
	})
}

// ResetPasswordPayload is the reset-password request body
type ResetPasswordPayload struct {
	Token    string `form:"token" json:"token"`
	Password string `form:"password" json:"password"`
}

// Validate will validate the payload
func (r ResetPasswordPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Token, validation.Required),
		validation.Field(&r.Password, validation.Required, validation.Length(8, 100)),
	)
}

func (a *AuthController) ResetPasswordPost(ctx *fiber.Ctx) error {
	payload := new(ResetPasswordPayload)

	if err := ctx.BodyParser(payload); err != nil {
		a.Logger.Error("reset password parse payload: %v", err)
		return a.renderError(ctx, goerrors.Wrap(err, goerrors.CategoryBadInput, "failed to parse body").
			WithCode(goerrors.CodeBadRequest))
	}

	if err := payload.Validate(); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":      "validation failed",
			"validation": FormatValidationErrorToMap(err),
		})
	}

	req := FinalizePasswordResetMessage{
		Token:    payload.Token,
		Password: payload.Password,
	}

	if err := a.Reset.Execute(ctx.Context(), req); err != nil {
		a.Logger.Error("reset password error: %v", err)
		return a.renderError(ctx, err)
	}

	return ctx.JSON(fiber.Map{
		"message": "password updated",
	})
}

// renderError maps domain errors to HTTP status codes. The body carries the
// message and text code only, never internal detail.
func (a *AuthController) renderError(ctx *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	message := "internal server error"
	textCode := ""

	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		message = richErr.Message
		textCode = richErr.TextCode

		switch richErr.Category {
		case goerrors.CategoryConflict:
			status = fiber.StatusConflict
		case goerrors.CategoryValidation, goerrors.CategoryBadInput:
			status = fiber.StatusBadRequest
		case goerrors.CategoryAuth:
			status = fiber.StatusBadRequest
			if textCode == TextCodeInvalidCredentials {
				status = fiber.StatusUnauthorized
			}
		case goerrors.CategoryNotFound:
			status = fiber.StatusNotFound
		default:
			message = "internal server error"
		}
	}

	body := fiber.Map{"error": message}
	if textCode != "" {
		body["code"] = textCode
	}

	return ctx.Status(status).JSON(body)
}

// FormatValidationErrorToMap flattens ozzo validation errors into a
// field->message map.
func FormatValidationErrorToMap(err error) map[string]string {
	out := map[string]string{}
	if err == nil {
		return out
	}

	if errs, ok := err.(validation.Errors); ok {
		for field, ferr := range errs {
			out[field] = ferr.Error()
		}
		return out
	}

	out["error"] = err.Error()
	return out
}

// normalizeEmail canonicalizes an email for lookups. The store itself
// matches exactly; canonicalization happens once at the HTTP boundary.
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
