package web

import (
	"net/http"
	"strings"

	"github.com/nasermirzaei89/vidtube/authentication"
	authcontext "github.com/nasermirzaei89/vidtube/authentication/context"
)

const bearerPrefix = "Bearer "

// authMiddleware resolves a bearer token to its user and puts the user id in
// the request context. Requests without a token stay anonymous.
func (h *Handler) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" {
			next.ServeHTTP(w, r)

			return
		}

		token, ok := strings.CutPrefix(header, bearerPrefix)
		if !ok || strings.TrimSpace(token) == "" {
			writeError(w, r, http.StatusUnauthorized, "Unauthorized", "authorization header must be a bearer token")

			return
		}

		user, err := h.authSvc.Authenticate(r.Context(), strings.TrimSpace(token))
		if err != nil {
			handleServiceError(w, r, err)

			return
		}

		r = r.WithContext(authcontext.WithSubject(r.Context(), user.ID))

		next.ServeHTTP(w, r)
	})
}

func (h *Handler) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !authcontext.IsAuthenticated(r.Context()) {
			writeError(w, r, http.StatusUnauthorized, "Unauthorized", "authentication required")

			return
		}

		next.ServeHTTP(w, r)
	})
}

func currentUserID(r *http.Request) string {
	return authcontext.GetSubject(r.Context())
}

type signupRequest struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Password  string `json:"password"`
}

func (h *Handler) HandleSignup() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req signupRequest

		err := decodeJSON(w, r, &req)
		if err != nil {
			handleServiceError(w, r, err)

			return
		}

		_, err = h.authSvc.Signup(r.Context(), authentication.SignupRequest{
			FirstName: req.FirstName,
			LastName:  req.LastName,
			Email:     req.Email,
			Password:  req.Password,
		})
		if err != nil {
			handleServiceError(w, r, err)

			return
		}

		writeJSON(w, r, http.StatusCreated, messageResponse{
			Message: "Your account has been created. We have sent an OTP to your email, please verify your account within 10 minutes.",
		})
	})
}

type verifyRequest struct {
	Email string `json:"email"`
	OTP   string `json:"otp"`
}

func (h *Handler) HandleVerify() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req verifyRequest

		err := decodeJSON(w, r, &req)
		if err != nil {
			handleServiceError(w, r, err)

			return
		}

		token, err := h.authSvc.VerifyAccount(r.Context(), req.Email, req.OTP)
		if err != nil {
			handleServiceError(w, r, err)

			return
		}

		writeJSON(w, r, http.StatusCreated, tokenResponse{Message: "User has been verified", Token: token})
	})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) HandleLogin() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req loginRequest

		err := decodeJSON(w, r, &req)
		if err != nil {
			handleServiceError(w, r, err)

			return
		}

		token, err := h.authSvc.Login(r.Context(), req.Email, req.Password)
		if err != nil {
			handleServiceError(w, r, err)

			return
		}

		writeJSON(w, r, http.StatusOK, tokenResponse{Message: "You are logged in successfully", Token: token})
	})
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

func (h *Handler) HandleForgotPassword() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req forgotPasswordRequest

		err := decodeJSON(w, r, &req)
		if err != nil {
			handleServiceError(w, r, err)

			return
		}

		err = h.authSvc.ForgotPassword(r.Context(), req.Email)
		if err != nil {
			handleServiceError(w, r, err)

			return
		}

		writeJSON(w, r, http.StatusOK, messageResponse{Message: "We have sent an OTP to your email."})
	})
}

type resetPasswordRequest struct {
	Email    string `json:"email"`
	OTP      string `json:"otp"`
	Password string `json:"password"`
}

func (h *Handler) HandleResetPassword() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req resetPasswordRequest

		err := decodeJSON(w, r, &req)
		if err != nil {
			handleServiceError(w, r, err)

			return
		}

		err = h.authSvc.ResetPassword(r.Context(), authentication.ResetPasswordRequest{
			Email:    req.Email,
			OTP:      req.OTP,
			Password: req.Password,
		})
		if err != nil {
			handleServiceError(w, r, err)

			return
		}

		writeJSON(w, r, http.StatusOK, messageResponse{Message: "Your password has been reset."})
	})
}

func (h *Handler) HandleUpdateProfile() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		form, err := parseMultipart(w, r, maxProfileRequestSize)
		if err != nil {
			handleServiceError(w, r, err)

			return
		}
		defer form.close()

		image, err := form.file("profile")
		if err != nil {
			handleServiceError(w, r, err)

			return
		}

		user, err := h.authSvc.UpdateProfile(r.Context(), authentication.UpdateProfileRequest{
			UserID:    currentUserID(r),
			FirstName: r.FormValue("firstName"),
			LastName:  r.FormValue("lastName"),
			Image:     image,
		})
		if err != nil {
			handleServiceError(w, r, err)

			return
		}

		writeJSON(w, r, http.StatusAccepted, newUserResponse(user))
	})
}
