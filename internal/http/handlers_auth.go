package http

import (
	"net/http"
	"strings"

	"fintrack/internal/auth"
	"fintrack/internal/core"
	applog "fintrack/internal/log"
	"fintrack/internal/notify"
	"fintrack/internal/services"
)

type loginPage struct {
	pageData
	Email       string
	Error       string
	PhonePrefix string
}

type otpStep struct {
	Phone       string
	MaskedPhone string
	Error       string
}

func isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}

func (s *Server) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	if _, ok := auth.FromContext(r.Context()); ok {
		http.Redirect(w, r, "/dashboard", http.StatusFound)
		return
	}
	s.render(w, r, http.StatusOK, "login.html", loginPage{
		pageData:    newPageData(r, "Log In", "login"),
		PhonePrefix: s.opts.PhonePrefix,
	})
}

func (s *Server) handleSignupPage(w http.ResponseWriter, r *http.Request) {
	if _, ok := auth.FromContext(r.Context()); ok {
		http.Redirect(w, r, "/dashboard", http.StatusFound)
		return
	}
	s.render(w, r, http.StatusOK, "signup.html", loginPage{pageData: newPageData(r, "Sign Up", "signup")})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req SignInRequest
	if err := s.bindAndValidate(r, &req); err != nil {
		s.authFailed(w, r, "login.html", req.Email, err)
		return
	}
	sess, err := s.auth.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		s.authFailed(w, r, "login.html", req.Email, err)
		return
	}
	s.signedIn(w, r, sess, applog.OpSignIn)
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req SignInRequest
	if err := s.bindAndValidate(r, &req); err != nil {
		s.authFailed(w, r, "signup.html", req.Email, err)
		return
	}
	sess, err := s.auth.SignUp(r.Context(), req.Email, req.Password)
	if err != nil {
		s.authFailed(w, r, "signup.html", req.Email, err)
		return
	}
	s.signedIn(w, r, sess, applog.OpSignUp)
}

// handleRequestOTP sends a code and swaps in the code-entry step.
func (s *Server) handleRequestOTP(w http.ResponseWriter, r *http.Request) {
	var req OTPRequest
	if err := s.bindAndValidate(r, &req); err != nil {
		s.renderError(w, r, err)
		return
	}
	phone, err := s.auth.RequestOTP(r.Context(), req.Phone)
	if err != nil {
		s.renderError(w, r, err)
		return
	}
	applog.FromContext(r.Context()).InfoContext(r.Context(), "OTP requested",
		applog.FieldOperation, applog.OpOTP,
		"phone", notify.MaskPhone(phone))
	s.render(w, r, http.StatusOK, "otp_verify", otpStep{Phone: phone, MaskedPhone: notify.MaskPhone(phone)})
}

func (s *Server) handleVerifyOTP(w http.ResponseWriter, r *http.Request) {
	var req OTPVerifyRequest
	if err := s.bindAndValidate(r, &req); err != nil {
		s.otpFailed(w, r, req.Phone, err)
		return
	}
	sess, err := s.auth.VerifyOTP(r.Context(), req.Phone, req.Code)
	if err != nil {
		s.otpFailed(w, r, req.Phone, err)
		return
	}
	s.signedIn(w, r, sess, applog.OpOTP)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.opts.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	if isHTMX(r) {
		NewHTMXResponse().Redirect("/login").Write(w)
		return
	}
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

func (s *Server) setSessionCookie(w http.ResponseWriter, sess services.Session) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    sess.Token,
		Path:     "/",
		Expires:  sess.ExpiresAt,
		HttpOnly: true,
		Secure:   s.opts.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Server) signedIn(w http.ResponseWriter, r *http.Request, sess services.Session, op string) {
	s.setSessionCookie(w, sess)
	s.appMetrics.signIns.Add(1)
	applog.FromContext(r.Context()).InfoContext(r.Context(), "User signed in",
		applog.FieldOperation, op,
		applog.FieldUserID, sess.User.ID)

	if isHTMX(r) {
		NewHTMXResponse().Redirect("/dashboard").Write(w)
		return
	}
	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}

// authFailed answers an email form error inline for htmx, or re-renders the
// page for plain form posts.
func (s *Server) authFailed(w http.ResponseWriter, r *http.Request, page, email string, err error) {
	status, msg := statusFor(err)
	if status == http.StatusUnauthorized {
		s.appMetrics.failedSignIns.Add(1)
	}
	if status >= http.StatusInternalServerError {
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Sign-in failed", "error", err, "page", page)
	}
	if isHTMX(r) {
		ErrorResponse(status, msg).Write(w)
		return
	}
	title := "Log In"
	if page == "signup.html" {
		title = "Sign Up"
	}
	s.render(w, r, status, page, loginPage{
		pageData:    newPageData(r, title, strings.TrimSuffix(page, ".html")),
		Email:       email,
		Error:       msg,
		PhonePrefix: s.opts.PhonePrefix,
	})
}

// otpFailed keeps the code-entry step on screen unless the challenge is gone.
func (s *Server) otpFailed(w http.ResponseWriter, r *http.Request, rawPhone string, err error) {
	status, msg := statusFor(err)
	if status == http.StatusUnauthorized || status == http.StatusTooManyRequests {
		s.appMetrics.failedSignIns.Add(1)
	}
	if status >= http.StatusInternalServerError {
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "OTP verification failed", "error", err)
	}
	phone, perr := core.NormalizePhone(rawPhone, s.opts.PhonePrefix)
	if perr != nil {
		ErrorResponse(status, msg).Write(w)
		return
	}
	s.render(w, r, status, "otp_verify", otpStep{Phone: phone, MaskedPhone: notify.MaskPhone(phone), Error: msg})
}
