package models

import "testing"

func TestNormalizedAuthMode(t *testing.T) {
	tests := []struct {
		name  string
		event Event
		want  AuthMode
	}{
		{"explicit open", Event{AuthMode: AuthModeOpen, OpenInvite: false}, AuthModeOpen},
		{"explicit code", Event{AuthMode: AuthModeCode}, AuthModeCode},
		{"explicit guest list", Event{AuthMode: AuthModeGuestList, OpenInvite: true}, AuthModeGuestList},
		{"legacy open invite", Event{OpenInvite: true}, AuthModeOpen},
		{"legacy closed invite", Event{OpenInvite: false}, AuthModeGuestList},
		{"unknown mode falls back to legacy flag", Event{AuthMode: "vip", OpenInvite: true}, AuthModeOpen},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.event.NormalizedAuthMode(); got != tt.want {
				t.Errorf("NormalizedAuthMode() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestPartySize(t *testing.T) {
	tests := []struct {
		name     string
		attendee Attendee
		want     int
	}{
		{"attending alone", Attendee{Attending: true}, 1},
		{"attending with guests", Attendee{Attending: true, GuestCount: 3}, 4},
		{"declined", Attendee{Attending: false, GuestCount: 3}, 0},
		{"negative guest count", Attendee{Attending: true, GuestCount: -2}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.attendee.PartySize(); got != tt.want {
				t.Errorf("PartySize() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestEventResponseExcludesSecrets(t *testing.T) {
	event := Event{ID: 1, Title: "Launch", AdminToken: "secret", PromoCode: "VIP", OpenInvite: false}
	resp := event.ToResponse()
	if resp.AuthMode != AuthModeGuestList {
		t.Errorf("expected normalized auth mode in response, got %s", resp.AuthMode)
	}
}
