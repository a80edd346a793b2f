package domain

import (
	"testing"
	"time"
)

func TestAction_Status(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		action Action
		want   ActionStatus
	}{
		{"upcoming", Action{ActiveAt: now.Add(time.Hour)}, ActionUpcoming},
		{"pending", Action{ActiveAt: now.Add(-time.Hour)}, ActionPending},
		{"pending at activation", Action{ActiveAt: now}, ActionPending},
		{"completed", Action{ActiveAt: now.Add(time.Hour), Executed: true}, ActionCompleted},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.action.Status(now); got != tt.want {
				t.Errorf("Status() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestUser_VerificationID(t *testing.T) {
	u := &User{
		PincodeVerificationID:    "pin-1",
		TwoFactorVerificationID:  "otp-1",
		SecretCodeVerificationID: "codes-1",
	}

	if got := u.VerificationID(VerificationPincode); got != "" {
		t.Errorf("disabled pincode should have no id, got %q", got)
	}

	u.PincodeEnabled = true
	u.TwoFactorEnabled = true
	if got := u.VerificationID(VerificationPincode); got != "pin-1" {
		t.Errorf("pincode id = %q", got)
	}
	if got := u.VerificationID(VerificationOTP); got != "otp-1" {
		t.Errorf("otp id = %q", got)
	}
	if got := u.VerificationID(VerificationSecretCodes); got != "codes-1" {
		t.Errorf("secret codes id = %q", got)
	}
}
