package auth

import (
	"fmt"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/gofiber/fiber/v2"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
)

// ControllerRoutes names the mounted paths.
type ControllerRoutes struct {
	Register       string
	Login          string
	Refresh        string
	Logout         string
	EmailVerify    string
	EmailChange    string
	PasswordChange string
	PasswordReset  string
	Profile        string
}

func defaultControllerRoutes() *ControllerRoutes {
	return &ControllerRoutes{
		Register:       "/auth/register",
		Login:          "/auth/login",
		Refresh:        "/auth/token/refresh",
		Logout:         "/auth/logout",
		EmailVerify:    "/user/email/verify",
		EmailChange:    "/user/email/change",
		PasswordChange: "/user/password/change",
		PasswordReset:  "/user/password/reset",
		Profile:        "/user/profile/me",
	}
}

// Controller exposes the account flows as a JSON API.
type Controller struct {
	Debug         bool
	Logger        Logger
	Accounts      *AccountService
	Verifications *VerificationService
	Auther        *Authenticator
	Routes        *ControllerRoutes
	// RefreshCookie carries the refresh token alongside the login
	// response. Secure/HTTPOnly/SameSite=None are forced at write time
	// regardless of what the struct says; cross-site frontends need
	// those attributes on the refresh channel specifically.
	RefreshCookie CookieConfig
}

type ControllerOption func(*Controller) *Controller

func NewController(opts ...ControllerOption) *Controller {
	c := &Controller{
		Logger: defLogger{},
		Routes: defaultControllerRoutes(),
		RefreshCookie: CookieConfig{
			Name:   "refresh_token",
			MaxAge: 30 * 24 * 3600,
			Path:   "/",
		},
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Accounts == nil {
		panic("Missing AccountService in auth controller...")
	}
	if c.Verifications == nil {
		panic("Missing VerificationService in auth controller...")
	}
	if c.Auther == nil {
		panic("Missing Authenticator in auth controller...")
	}

	return c
}

func WithControllerLogger(logger Logger) ControllerOption {
	return func(c *Controller) *Controller {
		if logger != nil {
			c.Logger = logger
		}
		return c
	}
}

func WithAccountService(svc *AccountService) ControllerOption {
	return func(c *Controller) *Controller {
		c.Accounts = svc
		return c
	}
}

func WithVerificationService(svc *VerificationService) ControllerOption {
	return func(c *Controller) *Controller {
		c.Verifications = svc
		return c
	}
}

func WithAuthenticator(auther *Authenticator) ControllerOption {
	return func(c *Controller) *Controller {
		c.Auther = auther
		return c
	}
}

func WithRefreshCookie(cfg CookieConfig) ControllerOption {
	return func(c *Controller) *Controller {
		c.RefreshCookie = cfg
		return c
	}
}

func WithControllerDebug(debug bool) ControllerOption {
	return func(c *Controller) *Controller {
		c.Debug = debug
		return c
	}
}

// RegisterAuthRoutes mounts the account API on a router.
func RegisterAuthRoutes[T any](app router.Router[T], opts ...ControllerOption) *Controller {
	controller := NewController(opts...)
	routes := controller.Routes

	app.Post(routes.Register, controller.Register).SetName("auth.register")
	app.Post(routes.Login, controller.Login).SetName("auth.login")
	app.Get(routes.Refresh, controller.Refresh).SetName("auth.refresh")
	app.Get(routes.Logout, controller.Logout).SetName("auth.logout")

	app.Post(routes.EmailVerify, controller.RequestEmailVerify).SetName("user.email-verify.request")
	app.Get(routes.EmailVerify, controller.ConfirmEmailVerify).SetName("user.email-verify.confirm")

	app.Post(routes.EmailChange, controller.RequestEmailChange).SetName("user.email-change.request")
	app.Get(routes.EmailChange, controller.ConfirmEmailChange).SetName("user.email-change.confirm")

	app.Put(routes.PasswordChange, controller.ChangePassword).SetName("user.password-change")
	app.Post(routes.PasswordReset, controller.RequestPasswordReset).SetName("user.password-reset.request")
	app.Patch(routes.PasswordReset, controller.ResetPassword).SetName("user.password-reset.confirm")

	app.Get(routes.Profile, controller.Me).SetName("user.profile.get")
	app.Patch(routes.Profile, controller.UpdateProfile).SetName("user.profile.patch")

	return controller
}

// RegistrationPayload is the signup body.
type RegistrationPayload struct {
	FirstName string `form:"first_name" json:"first_name"`
	LastName  string `form:"last_name" json:"last_name"`
	Email     string `form:"email" json:"email"`
	Password  string `form:"password" json:"password"`
}

// Validate will run validation rules
func (r RegistrationPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.FirstName, validation.Length(0, 200)),
		validation.Field(&r.LastName, validation.Length(0, 200)),
		validation.Field(&r.Email, validation.Required, validation.Length(6, 100), is.Email),
		validation.Field(&r.Password, validation.Required, validation.Length(1, 200)),
	)
}

func (a *Controller) Register(ctx router.Context) error {
	payload := new(RegistrationPayload)

	if err := ctx.Bind(payload); err != nil {
		return a.badRequest(ctx, err)
	}

	if err := payload.Validate(); err != nil {
		return a.validationFailed(ctx, err)
	}

	if a.Debug {
		fmt.Println("======= AUTH REGISTER ======")
		fmt.Println(print.MaybePrettyJSON(payload))
		fmt.Println("============================")
	}

	user, err := a.Accounts.Register(ctx.Context(), RegisterPayload{
		FirstName: payload.FirstName,
		LastName:  payload.LastName,
		Email:     payload.Email,
		Password:  payload.Password,
	})
	if err != nil {
		return a.renderError(ctx, err)
	}

	return ctx.JSON(fiber.StatusCreated, user)
}

// LoginPayload is the form-encoded credential body.
type LoginPayload struct {
	Username string `form:"username" json:"username"`
	Password string `form:"password" json:"password"`
}

// Validate will run validation rules
func (r LoginPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Username, validation.Required, is.Email),
		validation.Field(&r.Password, validation.Required),
	)
}

func (a *Controller) Login(ctx router.Context) error {
	payload := new(LoginPayload)

	if err := ctx.Bind(payload); err != nil {
		return a.badRequest(ctx, err)
	}

	if err := payload.Validate(); err != nil {
		return a.validationFailed(ctx, err)
	}

	user, err := a.Accounts.Authenticate(ctx.Context(), payload.Username, payload.Password)
	if err != nil {
		return a.renderError(ctx, err)
	}
	if user == nil {
		return a.renderError(ctx, ErrBadCredentials)
	}

	backend := a.Auther.Backends()[0]
	pair, err := backend.Login(ctx, NewIdentityFromUser(user))
	if err != nil {
		return a.renderError(ctx, err)
	}

	a.setRefreshCookie(ctx, pair.RefreshToken)
	return nil
}

func (a *Controller) Refresh(ctx router.Context) error {
	res, err := a.Auther.Current(ctx, RequireRefresh())
	if err != nil {
		return a.renderError(ctx, err)
	}

	pair, err := res.Backend.Login(ctx, NewIdentityFromUser(res.User))
	if err != nil {
		return a.renderError(ctx, err)
	}

	a.setRefreshCookie(ctx, pair.RefreshToken)
	return nil
}

func (a *Controller) Logout(ctx router.Context) error {
	a.clearRefreshCookie(ctx)

	res, err := a.Auther.Current(ctx, RequireOptions{Optional: true, TokenType: TokenTypeAccess})
	if err == nil && res != nil {
		return res.Backend.Logout(ctx, res.Token, NewIdentityFromUser(res.User))
	}

	return ctx.NoContent(fiber.StatusNoContent)
}

func (a *Controller) RequestEmailVerify(ctx router.Context) error {
	res, err := a.Auther.Current(ctx, RequireActive())
	if err != nil {
		return a.renderError(ctx, err)
	}

	if err := a.Verifications.RequestVerification(ctx.Context(), res.User); err != nil {
		return a.renderError(ctx, err)
	}
	return ctx.NoContent(fiber.StatusNoContent)
}

func (a *Controller) ConfirmEmailVerify(ctx router.Context) error {
	token := ctx.Query("token", "")
	if token == "" {
		return a.renderError(ctx, ErrInvalidToken)
	}

	user, err := a.Verifications.ConfirmVerification(ctx.Context(), token)
	if err != nil {
		return a.renderError(ctx, err)
	}
	return ctx.JSON(fiber.StatusOK, user)
}

// EmailChangePayload carries the candidate address.
type EmailChangePayload struct {
	Email string `form:"email" json:"email"`
}

// Validate will run validation rules
func (r EmailChangePayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, validation.Length(6, 100), is.Email),
	)
}

func (a *Controller) RequestEmailChange(ctx router.Context) error {
	res, err := a.Auther.Current(ctx, RequireActive())
	if err != nil {
		return a.renderError(ctx, err)
	}

	payload := new(EmailChangePayload)
	if err := ctx.Bind(payload); err != nil {
		return a.badRequest(ctx, err)
	}
	if err := payload.Validate(); err != nil {
		return a.validationFailed(ctx, err)
	}

	if err := a.Accounts.RequestEmailChange(ctx.Context(), res.User, payload.Email); err != nil {
		return a.renderError(ctx, err)
	}
	return ctx.NoContent(fiber.StatusNoContent)
}

func (a *Controller) ConfirmEmailChange(ctx router.Context) error {
	token := ctx.Query("token", "")
	email := ctx.Query("email", "")
	if token == "" || email == "" {
		return a.renderError(ctx, ErrInvalidToken)
	}

	user, err := a.Accounts.ConfirmEmailChange(ctx.Context(), token, email)
	if err != nil {
		return a.renderError(ctx, err)
	}
	return ctx.JSON(fiber.StatusOK, user)
}

// PasswordChangePayload swaps the credential secret.
type PasswordChangePayload struct {
	OldPassword string `form:"old_password" json:"old_password"`
	NewPassword string `form:"new_password" json:"new_password"`
}

// Validate will run validation rules
func (r PasswordChangePayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.OldPassword, validation.Required),
		validation.Field(&r.NewPassword, validation.Required),
	)
}

func (a *Controller) ChangePassword(ctx router.Context) error {
	res, err := a.Auther.Current(ctx, RequireActive())
	if err != nil {
		return a.renderError(ctx, err)
	}

	payload := new(PasswordChangePayload)
	if err := ctx.Bind(payload); err != nil {
		return a.badRequest(ctx, err)
	}
	if err := payload.Validate(); err != nil {
		return a.validationFailed(ctx, err)
	}

	if _, err := a.Accounts.ChangePassword(ctx.Context(), res.User, payload.OldPassword, payload.NewPassword); err != nil {
		return a.renderError(ctx, err)
	}
	return ctx.NoContent(fiber.StatusNoContent)
}

// PasswordResetRequestPayload holds values for password reset
type PasswordResetRequestPayload struct {
	Email string `form:"email" json:"email"`
}

// Validate will run validation rules
func (r PasswordResetRequestPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, validation.Length(6, 100), is.Email),
	)
}

func (a *Controller) RequestPasswordReset(ctx router.Context) error {
	payload := new(PasswordResetRequestPayload)
	if err := ctx.Bind(payload); err != nil {
		return a.badRequest(ctx, err)
	}
	if err := payload.Validate(); err != nil {
		return a.validationFailed(ctx, err)
	}

	if err := a.Verifications.RequestPasswordReset(ctx.Context(), payload.Email); err != nil {
		return a.renderError(ctx, err)
	}
	return ctx.NoContent(fiber.StatusNoContent)
}

// PasswordResetPayload carries the replacement secret.
type PasswordResetPayload struct {
	Password string `form:"password" json:"password"`
}

// Validate will run validation rules
func (r PasswordResetPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Password, validation.Required),
	)
}

func (a *Controller) ResetPassword(ctx router.Context) error {
	token := ctx.Query("token", "")
	if token == "" {
		return a.renderError(ctx, ErrInvalidToken)
	}

	payload := new(PasswordResetPayload)
	if err := ctx.Bind(payload); err != nil {
		return a.badRequest(ctx, err)
	}
	if err := payload.Validate(); err != nil {
		return a.validationFailed(ctx, err)
	}

	if _, err := a.Verifications.ResetPassword(ctx.Context(), token, payload.Password); err != nil {
		return a.renderError(ctx, err)
	}
	return ctx.NoContent(fiber.StatusNoContent)
}

func (a *Controller) Me(ctx router.Context) error {
	res, err := a.Auther.Current(ctx, RequireActive())
	if err != nil {
		return a.renderError(ctx, err)
	}
	return ctx.JSON(fiber.StatusOK, res.User)
}

// ProfilePayload is a sparse profile patch.
type ProfilePayload struct {
	FirstName *string `form:"first_name" json:"first_name"`
	LastName  *string `form:"last_name" json:"last_name"`
	Email     *string `form:"email" json:"email"`
}

// Validate will run validation rules
func (r ProfilePayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, is.Email),
	)
}

func (a *Controller) UpdateProfile(ctx router.Context) error {
	res, err := a.Auther.Current(ctx, RequireActive())
	if err != nil {
		return a.renderError(ctx, err)
	}

	payload := new(ProfilePayload)
	if err := ctx.Bind(payload); err != nil {
		return a.badRequest(ctx, err)
	}
	if err := payload.Validate(); err != nil {
		return a.validationFailed(ctx, err)
	}

	user, err := a.Accounts.UpdateProfile(ctx.Context(), res.User.ID, ProfileUpdate{
		FirstName: payload.FirstName,
		LastName:  payload.LastName,
		Email:     payload.Email,
	})
	if err != nil {
		return a.renderError(ctx, err)
	}
	return ctx.JSON(fiber.StatusOK, user)
}

func (a *Controller) setRefreshCookie(ctx router.Context, refreshToken string) {
	if refreshToken == "" {
		return
	}

	cfg := a.RefreshCookie
	ctx.Cookie(&router.Cookie{
		Name:     cfg.Name,
		Value:    refreshToken,
		MaxAge:   cfg.MaxAge,
		Path:     cfg.Path,
		Domain:   cfg.Domain,
		Expires:  time.Now().Add(time.Duration(cfg.MaxAge) * time.Second),
		Secure:   true,
		HTTPOnly: true,
		SameSite: "None",
	})
}

func (a *Controller) clearRefreshCookie(ctx router.Context) {
	cfg := a.RefreshCookie
	ctx.Cookie(&router.Cookie{
		Name:     cfg.Name,
		Value:    "",
		MaxAge:   -1,
		Path:     cfg.Path,
		Domain:   cfg.Domain,
		Expires:  time.Now().Add(-time.Hour * (24 * 365)),
		Secure:   true,
		HTTPOnly: true,
		SameSite: "None",
	})
}

type errorEnvelope struct {
	Code        string   `json:"code"`
	Reason      string   `json:"reason"`
	ErrorFields []string `json:"error_fields,omitempty"`
}

func (a *Controller) badRequest(ctx router.Context, err error) error {
	a.Logger.Error("auth controller bind failed", "error", err)
	return ctx.JSON(fiber.StatusBadRequest, errorEnvelope{
		Code:   "BAD_REQUEST",
		Reason: "unable to parse request body",
	})
}

func (a *Controller) validationFailed(ctx router.Context, err error) error {
	fields := make([]string, 0)
	if verr, ok := err.(validation.Errors); ok {
		for field := range verr {
			fields = append(fields, field)
		}
	}
	return ctx.JSON(fiber.StatusBadRequest, errorEnvelope{
		Code:        "VALIDATION_ERROR",
		Reason:      err.Error(),
		ErrorFields: fields,
	})
}

// renderError maps rich errors onto the wire envelope. Unknown errors
// become opaque 500s so internals never leak.
func (a *Controller) renderError(ctx router.Context, err error) error {
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		a.Logger.Error("auth controller unhandled error", "error", err)
		return ctx.JSON(fiber.StatusInternalServerError, errorEnvelope{
			Code:   "INTERNAL_ERROR",
			Reason: "internal error",
		})
	}

	status := richErr.Code
	if status == 0 {
		status = fiber.StatusInternalServerError
	}

	return ctx.JSON(status, errorEnvelope{
		Code:        richErr.TextCode,
		Reason:      richErr.Message,
		ErrorFields: ErrorFields(richErr),
	})
}
