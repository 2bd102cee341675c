package notify

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
)

func TestNewTwilio_Validation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name            string
		sid, token, num string
	}{
		{"missing sid", "", "token", "+33700000000"},
		{"missing token", "AC123", "", "+33700000000"},
		{"missing from", "AC123", "token", ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if _, err := NewTwilio(tc.sid, tc.token, tc.num); err == nil {
				t.Error("NewTwilio succeeded, want error")
			}
		})
	}
}

func TestTwilio_SendConfirmation(t *testing.T) {
	t.Parallel()

	var gotForm url.Values
	var gotUser, gotPass string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/Accounts/AC123/Messages.json" {
			t.Errorf("path = %q", r.URL.Path)
		}
		gotUser, gotPass, _ = r.BasicAuth()
		if err := r.ParseForm(); err != nil {
			t.Errorf("ParseForm: %v", err)
		}
		gotForm = r.PostForm
		w.WriteHeader(http.StatusCreated)
	}))
	t.Cleanup(srv.Close)

	tw, err := NewTwilio("AC123", "secret", "+33700000000", WithTwilioBaseURL(srv.URL))
	if err != nil {
		t.Fatalf("NewTwilio: %v", err)
	}

	ok := tw.SendConfirmation(context.Background(), "+33636363636", "Thursday, September 3, 2026 at 09:30 CEST", LanguageFrench)
	if !ok {
		t.Fatal("SendConfirmation reported failure for a 201 response")
	}

	if gotUser != "AC123" || gotPass != "secret" {
		t.Errorf("basic auth = %q/%q", gotUser, gotPass)
	}
	if got := gotForm.Get("To"); got != "+33636363636" {
		t.Errorf("To = %q", got)
	}
	if got := gotForm.Get("From"); got != "+33700000000" {
		t.Errorf("From = %q", got)
	}
	want := "Confirmation de rendez-vous: Thursday, September 3, 2026 at 09:30 CEST"
	if got := gotForm.Get("Body"); got != want {
		t.Errorf("Body = %q, want %q", got, want)
	}
}

func TestTwilio_SendConfirmation_Rejected(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"code": 21211, "message": "invalid 'To' number"}`, http.StatusBadRequest)
	}))
	t.Cleanup(srv.Close)

	tw, err := NewTwilio("AC123", "secret", "+33700000000", WithTwilioBaseURL(srv.URL))
	if err != nil {
		t.Fatalf("NewTwilio: %v", err)
	}
	if tw.SendConfirmation(context.Background(), "not-a-number", "details", LanguageGerman) {
		t.Error("SendConfirmation reported success for a 400 response")
	}
}

func TestTwilio_SendConfirmation_TransportError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close() // nothing is listening anymore

	tw, err := NewTwilio("AC123", "secret", "+33700000000", WithTwilioBaseURL(srv.URL))
	if err != nil {
		t.Fatalf("NewTwilio: %v", err)
	}
	if tw.SendConfirmation(context.Background(), "+33636363636", "details", LanguageGerman) {
		t.Error("SendConfirmation reported success although the endpoint is unreachable")
	}
}
