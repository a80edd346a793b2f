package api

import (
	"net/http"

	"asset-tokenization-kit/internal/auth"
)

func (s *Server) signUp(w http.ResponseWriter, r *http.Request) {
	var in auth.SignUpInput
	if err := decode(r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	res, err := s.auth.SignUp(r.Context(), in, s.clientInfo(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (s *Server) signIn(w http.ResponseWriter, r *http.Request) {
	var in auth.SignInInput
	if err := decode(r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	res, err := s.auth.SignIn(r.Context(), in, s.clientInfo(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) signOut(w http.ResponseWriter, r *http.Request) {
	if err := s.auth.SignOut(r.Context(), auth.PrincipalFrom(r.Context())); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type sessionResponse struct {
	User    any `json:"user"`
	Session any `json:"session"`
}

func (s *Server) session(w http.ResponseWriter, r *http.Request) {
	p := auth.PrincipalFrom(r.Context())
	writeJSON(w, http.StatusOK, sessionResponse{User: p.User, Session: p.Session})
}

func (s *Server) enablePincode(w http.ResponseWriter, r *http.Request) {
	var in auth.PincodeInput
	if err := decode(r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.auth.EnablePincode(r.Context(), currentUser(r), in.Pincode); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{Success: true})
}

func (s *Server) disablePincode(w http.ResponseWriter, r *http.Request) {
	var in auth.PincodeInput
	if err := decode(r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.auth.DisablePincode(r.Context(), currentUser(r), in.Pincode); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{Success: true})
}

func (s *Server) updatePincode(w http.ResponseWriter, r *http.Request) {
	var in auth.UpdatePincodeInput
	if err := decode(r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.auth.UpdatePincode(r.Context(), currentUser(r), in.Pincode, in.NewPincode); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{Success: true})
}

type secretCodesResponse struct {
	SecretCodes []string `json:"secretCodes"`
}

func (s *Server) generateSecretCodes(w http.ResponseWriter, r *http.Request) {
	var in auth.PasswordInput
	if err := decode(r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	codes, err := s.auth.GenerateSecretCodes(r.Context(), currentUser(r), in.Password)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, secretCodesResponse{SecretCodes: codes})
}

func (s *Server) confirmSecretCodes(w http.ResponseWriter, r *http.Request) {
	var in auth.ConfirmSecretCodesInput
	if err := decode(r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.auth.ConfirmSecretCodes(r.Context(), currentUser(r), in.Stored); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{Success: true})
}

type totpURIResponse struct {
	TOTPURI string `json:"totpURI"`
}

func (s *Server) enableTwoFactor(w http.ResponseWriter, r *http.Request) {
	var in auth.PasswordInput
	if err := decode(r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	uri, err := s.auth.EnableTwoFactor(r.Context(), currentUser(r), in.Password)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, totpURIResponse{TOTPURI: uri})
}

func (s *Server) verifyTOTP(w http.ResponseWriter, r *http.Request) {
	var in auth.TOTPInput
	if err := decode(r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.auth.VerifyTOTP(r.Context(), currentUser(r), in.Code); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{Success: true})
}

func (s *Server) disableTwoFactor(w http.ResponseWriter, r *http.Request) {
	var in auth.PasswordInput
	if err := decode(r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.auth.DisableTwoFactor(r.Context(), currentUser(r), in.Password); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{Success: true})
}

type statusResponse struct {
	Success bool `json:"success"`
}
