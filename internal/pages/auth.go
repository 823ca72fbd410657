package pages

import (
	"net/http"

	"github.com/ashureev/eventdash/internal/action"
	"github.com/ashureev/eventdash/internal/guard"
	"github.com/ashureev/eventdash/internal/session"
)

// LoginPage renders the login form.
func (h *Handler) LoginPage(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, "login", &view{
		Title:    "Login",
		Redirect: guard.SafeRedirect(r.URL.Query().Get("redirect"), ""),
	})
}

// Login authenticates and redirects to the requested page or the role's landing page.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	form, err := formValues(r)
	if err != nil {
		h.badRequest(w, r, "login", "Login", err)
		return
	}
	sess := session.FromContext(r.Context())
	target := guard.SafeRedirect(form["redirect"], "")

	res := h.actions.Login(actionContext(r), sess, action.LoginInput{
		Email:    form["email"],
		Password: form["password"],
	})
	if !res.Success {
		h.render(w, r, http.StatusUnprocessableEntity, "login", &view{
			Title: "Login", Error: res.Message, Fields: res.Fields, Form: form, Redirect: target,
		})
		return
	}

	if target == "" {
		target = h.paths.Landing
		if sess.Claims().IsAdmin() {
			target = "/admin/users"
		}
	}
	redirect(w, r, target, "")
}

// RegisterPage renders the sign-up form.
func (h *Handler) RegisterPage(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, "register", &view{Title: "Register"})
}

// Register creates an account and sends the user to the login page.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	form, err := formValues(r)
	if err != nil {
		h.badRequest(w, r, "register", "Register", err)
		return
	}

	res := h.actions.Register(actionContext(r), session.FromContext(r.Context()), action.RegisterInput{
		FirstName:       form["firstName"],
		LastName:        form["lastName"],
		Email:           form["email"],
		Password:        form["password"],
		ConfirmPassword: form["confirmPassword"],
	})
	if !res.Success {
		h.render(w, r, http.StatusUnprocessableEntity, "register", &view{
			Title: "Register", Error: res.Message, Fields: res.Fields, Form: form,
		})
		return
	}
	redirect(w, r, h.paths.Login, "Registration successful. Please log in.")
}

// ForgetPasswordPage renders the reset-request form.
func (h *Handler) ForgetPasswordPage(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, "forget_password", &view{Title: "Forgot password"})
}

// ForgetPassword requests a reset link.
func (h *Handler) ForgetPassword(w http.ResponseWriter, r *http.Request) {
	form, err := formValues(r)
	if err != nil {
		h.badRequest(w, r, "forget_password", "Forgot password", err)
		return
	}

	res := h.actions.ForgetPassword(actionContext(r), action.ForgetPasswordInput{Email: form["email"]})
	v := &view{Title: "Forgot password", Form: form}
	status := http.StatusOK
	if res.Success {
		v.Notice, v.Form = res.Message, nil
	} else {
		v.Error, v.Fields = res.Message, res.Fields
		status = http.StatusUnprocessableEntity
	}
	h.render(w, r, status, "forget_password", v)
}

// ResetPasswordPage renders the new-password form for the token in the query.
func (h *Handler) ResetPasswordPage(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, "reset_password", &view{
		Title: "Reset password",
		Token: r.URL.Query().Get("token"),
	})
}

// ResetPassword sets the new password and sends the user to the login page.
func (h *Handler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	form, err := formValues(r)
	if err != nil {
		h.badRequest(w, r, "reset_password", "Reset password", err)
		return
	}

	res := h.actions.ResetPassword(actionContext(r), action.ResetPasswordInput{
		Token:           form["token"],
		NewPassword:     form["newPassword"],
		ConfirmPassword: form["confirmPassword"],
	})
	if !res.Success {
		h.render(w, r, http.StatusUnprocessableEntity, "reset_password", &view{
			Title: "Reset password", Error: res.Message, Fields: res.Fields, Token: form["token"],
		})
		return
	}
	redirect(w, r, h.paths.Login, res.Message)
}

// Logout clears the session and returns to the home page.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	h.actions.Logout(actionContext(r), session.FromContext(r.Context()))
	redirect(w, r, "/", "")
}

// Dashboard renders the default landing page for signed-in users.
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, "dashboard", &view{Title: "Dashboard"})
}

func (h *Handler) badRequest(w http.ResponseWriter, r *http.Request, page, title string, err error) {
	h.logger.Warn("Failed to parse form", "page", page, "error", err)
	h.render(w, r, http.StatusBadRequest, page, &view{Title: title, Error: "Invalid form submission"})
}
