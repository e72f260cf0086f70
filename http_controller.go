package identity

import (
	"fmt"
	"html"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-router"
)

// RegisterIdentityRoutes mounts the identity endpoints on app.
func RegisterIdentityRoutes[T any](app router.Router[T], opts ...IdentityControllerOption) {

	controller := NewIdentityController(opts...)

	app.Get(controller.Routes.Health, controller.Health).SetName("identity.health")

	app.Post(controller.Routes.ValidateToken, controller.ValidateToken).
		SetName("identity.validate-token")

	app.Post(controller.Routes.Login, controller.Login).SetName("identity.login")
	app.Post(controller.Routes.Logout, controller.Logout).SetName("identity.logout")

	app.Post(controller.Routes.Registration, controller.Registration).
		SetName("identity.registration")
	app.Get(fmt.Sprintf("%s/:link", controller.Routes.Activate), controller.Activate).
		SetName("identity.activate")

	app.Get(controller.Routes.Refresh, controller.Refresh).SetName("identity.refresh")

	app.Post(controller.Routes.ForgotPassword, controller.ForgotPassword).
		SetName("identity.forgot-password")
	app.Post(fmt.Sprintf("%s/:token", controller.Routes.ResetPassword), controller.ResetPassword).
		SetName("identity.reset-password")
}

type IdentityControllerRoutes struct {
	Health         string
	ValidateToken  string
	Login          string
	Logout         string
	Registration   string
	Activate       string
	Refresh        string
	ForgotPassword string
	ResetPassword  string
}

type IdentityController struct {
	Logger       Logger
	Lifecycle    *IdentityLifecycle
	Routes       *IdentityControllerRoutes
	CookieTTL    time.Duration
	CookieSecure bool
	LoginURL     string
}

type IdentityControllerOption func(*IdentityController) *IdentityController

func WithControllerLifecycle(lifecycle *IdentityLifecycle) IdentityControllerOption {
	return func(c *IdentityController) *IdentityController {
		c.Lifecycle = lifecycle
		return c
	}
}

func WithControllerLogger(logger Logger) IdentityControllerOption {
	return func(c *IdentityController) *IdentityController {
		if logger != nil {
			c.Logger = logger
		}
		return c
	}
}

// WithRefreshCookie overrides how long the refresh cookie lives and whether
// it is restricted to HTTPS. The TTL should track the refresh token TTL.
func WithRefreshCookie(ttl time.Duration, secure bool) IdentityControllerOption {
	return func(c *IdentityController) *IdentityController {
		c.CookieTTL = ttl
		c.CookieSecure = secure
		return c
	}
}

// WithLoginURL sets the address the activation pages link back to.
func WithLoginURL(url string) IdentityControllerOption {
	return func(c *IdentityController) *IdentityController {
		c.LoginURL = url
		return c
	}
}

func NewIdentityController(opts ...IdentityControllerOption) *IdentityController {
	c := &IdentityController{
		Logger:       defLogger{},
		CookieTTL:    DefaultRefreshTokenTTL,
		CookieSecure: true,
		LoginURL:     "/login",
		Routes: &IdentityControllerRoutes{
			Health:         "/health",
			ValidateToken:  "/validate-token",
			Login:          "/login",
			Logout:         "/logout",
			Registration:   "/registration",
			Activate:       "/activate",
			Refresh:        "/refresh",
			ForgotPassword: "/forgot-password",
			ResetPassword:  "/reset-password",
		},
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Lifecycle == nil {
		panic("Missing IdentityLifecycle in identity controller...")
	}

	return c
}

func (a *IdentityController) Health(ctx router.Context) error {
	return ctx.JSON(fiber.StatusOK, map[string]string{
		"status":  "ok",
		"service": "identity-api",
	})
}

// ValidateTokenPayload carries the access token to verify.
type ValidateTokenPayload struct {
	Token string `form:"token" json:"token"`
}

// Validate will run validation rules
func (r ValidateTokenPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Token, validation.Required),
	)
}

func (a *IdentityController) ValidateToken(ctx router.Context) error {
	payload := new(ValidateTokenPayload)

	if err := ctx.Bind(payload); err != nil {
		return WriteError(ctx, a.Logger, bindError(err))
	}

	if err := payload.Validate(); err != nil {
		return WriteError(ctx, a.Logger, validationError(err))
	}

	summary, err := a.Lifecycle.ValidateToken(payload.Token)
	if err != nil {
		return WriteError(ctx, a.Logger, err)
	}

	return ctx.JSON(fiber.StatusOK, summary)
}

// CredentialsPayload is the login and registration body.
type CredentialsPayload struct {
	Email    string `form:"email" json:"email"`
	Password string `form:"password" json:"password"`
}

// Validate will run validation rules
func (r CredentialsPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Password, validation.Required, validation.Length(8, 100)),
	)
}

func (a *IdentityController) Login(ctx router.Context) error {
	payload := new(CredentialsPayload)

	if err := ctx.Bind(payload); err != nil {
		return WriteError(ctx, a.Logger, bindError(err))
	}

	if err := payload.Validate(); err != nil {
		return WriteError(ctx, a.Logger, validationError(err))
	}

	result, err := a.Lifecycle.Login(ctx.Context(), payload.Email, payload.Password)
	if err != nil {
		return WriteError(ctx, a.Logger, err)
	}

	setRefreshCookie(ctx, result.RefreshToken, a.CookieTTL, a.CookieSecure)

	return ctx.JSON(fiber.StatusOK, result)
}

func (a *IdentityController) Logout(ctx router.Context) error {
	refreshToken := ctx.Cookies(RefreshCookieName)

	if err := a.Lifecycle.Logout(ctx.Context(), refreshToken); err != nil {
		return WriteError(ctx, a.Logger, err)
	}

	clearRefreshCookie(ctx, a.CookieSecure)

	return ctx.JSON(fiber.StatusOK, map[string]string{"message": "Logged out"})
}

func (a *IdentityController) Registration(ctx router.Context) error {
	payload := new(CredentialsPayload)

	if err := ctx.Bind(payload); err != nil {
		return WriteError(ctx, a.Logger, bindError(err))
	}

	if err := payload.Validate(); err != nil {
		return WriteError(ctx, a.Logger, validationError(err))
	}

	result, err := a.Lifecycle.Register(ctx.Context(), payload.Email, payload.Password)
	if err != nil {
		return WriteError(ctx, a.Logger, err)
	}

	setRefreshCookie(ctx, result.RefreshToken, a.CookieTTL, a.CookieSecure)

	return ctx.JSON(fiber.StatusCreated, result)
}

// Activate confirms an account from the emailed link. It responds with a
// small HTML page because the link is opened in a browser, not by an API
// client.
func (a *IdentityController) Activate(ctx router.Context) error {
	link := ctx.Param("link", "")

	if err := a.Lifecycle.Activate(ctx.Context(), link); err != nil {
		a.Logger.Error("account activation failed", "error", err)
		ctx.SetHeader("Content-Type", "text/html; charset=utf-8")
		return ctx.Status(fiber.StatusBadRequest).
			SendString(activationFailPage(a.LoginURL, err))
	}

	ctx.SetHeader("Content-Type", "text/html; charset=utf-8")
	return ctx.Status(fiber.StatusOK).SendString(activationSuccessPage(a.LoginURL))
}

func (a *IdentityController) Refresh(ctx router.Context) error {
	refreshToken := ctx.Cookies(RefreshCookieName)

	result, err := a.Lifecycle.Refresh(ctx.Context(), refreshToken)
	if err != nil {
		return WriteError(ctx, a.Logger, err)
	}

	setRefreshCookie(ctx, result.RefreshToken, a.CookieTTL, a.CookieSecure)

	return ctx.JSON(fiber.StatusOK, result)
}

// ForgotPasswordPayload carries the address to send a reset link to.
type ForgotPasswordPayload struct {
	Email string `form:"email" json:"email"`
}

// Validate will run validation rules
func (r ForgotPasswordPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
	)
}

func (a *IdentityController) ForgotPassword(ctx router.Context) error {
	payload := new(ForgotPasswordPayload)

	if err := ctx.Bind(payload); err != nil {
		return WriteError(ctx, a.Logger, bindError(err))
	}

	if err := payload.Validate(); err != nil {
		return WriteError(ctx, a.Logger, validationError(err))
	}

	if err := a.Lifecycle.ForgotPassword(ctx.Context(), payload.Email); err != nil {
		return WriteError(ctx, a.Logger, err)
	}

	return ctx.JSON(fiber.StatusOK, map[string]string{"message": "Reset link sent"})
}

// ResetPasswordPayload carries the replacement password.
type ResetPasswordPayload struct {
	Password string `form:"password" json:"password"`
}

// Validate will run validation rules
func (r ResetPasswordPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Password, validation.Required, validation.Length(8, 100)),
	)
}

func (a *IdentityController) ResetPassword(ctx router.Context) error {
	ticket := ctx.Param("token", "")

	payload := new(ResetPasswordPayload)

	if err := ctx.Bind(payload); err != nil {
		return WriteError(ctx, a.Logger, bindError(err))
	}

	if err := payload.Validate(); err != nil {
		return WriteError(ctx, a.Logger, validationError(err))
	}

	if err := a.Lifecycle.ResetPassword(ctx.Context(), ticket, payload.Password); err != nil {
		return WriteError(ctx, a.Logger, err)
	}

	return ctx.JSON(fiber.StatusOK, map[string]string{"message": "Password reset successfully"})
}

func bindError(err error) error {
	return errors.Wrap(err, errors.CategoryBadInput, "Failed to parse request body").
		WithCode(errors.CodeBadRequest)
}

func validationError(err error) error {
	return errors.Wrap(err, errors.CategoryValidation, err.Error()).
		WithCode(errors.CodeBadRequest).
		WithMetadata(map[string]any{
			"fields": FormatValidationErrorToMap(err),
		})
}

// FormatValidationErrorToMap flattens ozzo field errors into a plain map
// suitable for JSON metadata.
func FormatValidationErrorToMap(err error) map[string]string {
	out := map[string]string{}

	fieldErrs, ok := err.(validation.Errors)
	if !ok {
		return out
	}

	for field, fieldErr := range fieldErrs {
		if fieldErr != nil {
			out[field] = fieldErr.Error()
		}
	}

	return out
}

func activationSuccessPage(loginURL string) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head><title>Account activated</title></head>
<body>
<h1>Your account has been activated</h1>
<p>You can now <a href="%s">sign in</a>.</p>
</body>
</html>`, loginURL)
}

func activationFailPage(loginURL string, err error) string {
	// The message can carry propagated storage errors; never trust it as markup.
	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head><title>Activation failed</title></head>
<body>
<h1>We could not activate your account</h1>
<p>%s</p>
<p>Back to <a href="%s">sign in</a>.</p>
</body>
</html>`, html.EscapeString(err.Error()), loginURL)
}
