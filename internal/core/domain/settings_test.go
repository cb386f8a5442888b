package domain

import (
	"errors"
	"testing"
)

func TestFormatWait(t *testing.T) {
	tests := map[int]string{
		0:     "",
		-5:    "",
		1:     "1 second",
		50:    "50 seconds",
		60:    "1 minute",
		125:   "2 minutes 5 seconds",
		3600:  "1 hour",
		3900:  "1 hour 5 minutes",
		86400: "24 hours",
	}
	for in, want := range tests {
		if got := FormatWait(in); got != want {
			t.Errorf("FormatWait(%d) = %q, want %q", in, got, want)
		}
	}
}

func TestUISettings_Message(t *testing.T) {
	ui := UISettings{ShowWaitTime: true}
	if got := ui.Message(ReasonIPCooldown, 50); got != "Please wait 50 seconds before submitting again." {
		t.Fatalf("unexpected default message %q", got)
	}

	ui.Messages = map[Reason]string{ReasonIPCooldown: "Hold on {time}"}
	if got := ui.Message(ReasonIPCooldown, 60); got != "Hold on 1 minute" {
		t.Fatalf("unexpected override %q", got)
	}

	ui.ShowWaitTime = false
	if got := ui.Message(ReasonIPCooldown, 60); got != "Hold on a while" {
		t.Fatalf("expected hidden wait time, got %q", got)
	}

	if got := ui.Message(Reason("unknown"), 0); got != "Request not allowed." {
		t.Fatalf("unexpected fallback %q", got)
	}
}

func TestRateLimitSettings_Validate(t *testing.T) {
	if err := DefaultRateLimitSettings().Validate(); err != nil {
		t.Fatalf("defaults must be valid: %v", err)
	}
	if err := (RateLimitSettings{}).Validate(); err != nil {
		t.Fatalf("all-disabled settings must be valid: %v", err)
	}

	invalid := []RateLimitSettings{
		{IP: &IPLimits{MaxPerHour: -1}},
		{Email: &EmailLimits{WaitHours: -2}},
		{Identifier: &IdentifierLimits{BlockThreshold: 3}},
		{Global: &GlobalLimits{MaxPerMinute: -1}},
		{Verification: &VerificationLimits{MaxPerDay: -1}},
		{UserActions: map[string]UserActionLimits{" ": {MaxPerHour: 1}}},
		{UserActions: map[string]UserActionLimits{"export": {MaxPerDay: -1}}},
		{Logging: &LoggingSettings{RetentionDays: -1}},
	}
	for i, s := range invalid {
		if err := s.Validate(); !errors.Is(err, ErrInvalidSettings) {
			t.Errorf("case %d: expected ErrInvalidSettings, got %v", i, err)
		}
	}
}

func TestListSet_Empty(t *testing.T) {
	var nilSet *ListSet
	if !nilSet.Empty() || !(&ListSet{}).Empty() {
		t.Fatalf("expected nil and zero sets to be empty")
	}
	if (&ListSet{Emails: []string{"a@b.com"}}).Empty() {
		t.Fatalf("expected populated set to be non-empty")
	}
}

func TestWindow(t *testing.T) {
	if WindowWeek.Seconds() != 604800 || WindowMonth.Seconds() != 2592000 || WindowMinute.Seconds() != 60 {
		t.Fatalf("unexpected window lengths")
	}
	key := CounterKey{Scope: ScopeIP, Subject: "1.2.3.4", Window: WindowHour}
	if key.String() != "gatekeeper:ip:hour:1.2.3.4" {
		t.Fatalf("unexpected key %q", key.String())
	}
	if d := Deny(ScopeIP, ReasonIPCooldown, -3); d.WaitSeconds != 0 || d.Allowed {
		t.Fatalf("expected negative wait to clamp, got %+v", d)
	}
}
