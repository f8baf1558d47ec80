// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Inkletter Contributors

package httpapi_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkletter/inkletter/internal/httpapi"
	"github.com/inkletter/inkletter/internal/newsletter"
)

type fakeSubscriptionService struct {
	subscribeErr error
	confirmErr   error

	gotName  string
	gotEmail string
	gotToken string
}

func (s *fakeSubscriptionService) Subscribe(_ context.Context, name, email string) error {
	s.gotName = name
	s.gotEmail = email
	return s.subscribeErr
}

func (s *fakeSubscriptionService) Confirm(_ context.Context, token string) error {
	s.gotToken = token
	return s.confirmErr
}

type fakeNewsletterService struct {
	publishErr error
	gotIssue   newsletter.Issue
	calls      int
}

func (s *fakeNewsletterService) Publish(_ context.Context, issue newsletter.Issue) (newsletter.Report, error) {
	s.calls++
	s.gotIssue = issue
	if s.publishErr != nil {
		return newsletter.Report{}, s.publishErr
	}
	return newsletter.Report{Sent: 1}, nil
}

type fakeValidator struct {
	userID ulid.ULID
	err    error

	gotUsername string
	gotPassword string
}

func (v *fakeValidator) Validate(_ context.Context, username, password string) (ulid.ULID, error) {
	v.gotUsername = username
	v.gotPassword = password
	if v.err != nil {
		return ulid.ULID{}, v.err
	}
	return v.userID, nil
}

type testDeps struct {
	subs        *fakeSubscriptionService
	newsletters *fakeNewsletterService
	validator   *fakeValidator
}

func newTestRouter(t *testing.T) (http.Handler, *testDeps) {
	t.Helper()
	deps := &testDeps{
		subs:        &fakeSubscriptionService{},
		newsletters: &fakeNewsletterService{},
		validator:   &fakeValidator{userID: ulid.Make()},
	}
	router := httpapi.NewRouter(&httpapi.RouterDeps{
		Subscriptions: deps.subs,
		Newsletters:   deps.newsletters,
		Credentials:   deps.validator,
	})
	return router, deps
}

func postForm(router http.Handler, path string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestHealthCheck(t *testing.T) {
	router, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/health_check", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Body.String())
}

func TestSubscribe(t *testing.T) {
	t.Run("valid form", func(t *testing.T) {
		router, deps := newTestRouter(t)

		rec := postForm(router, "/subscriptions", url.Values{
			"name":  {"le guin"},
			"email": {"ursula_le_guin@gmail.com"},
		})

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "le guin", deps.subs.gotName)
		assert.Equal(t, "ursula_le_guin@gmail.com", deps.subs.gotEmail)
	})

	t.Run("validation failure maps to 400", func(t *testing.T) {
		router, deps := newTestRouter(t)
		deps.subs.subscribeErr = oops.Code("VALIDATION_FAILED").Errorf("name is empty")

		rec := postForm(router, "/subscriptions", url.Values{"email": {"ursula_le_guin@gmail.com"}})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("persistence failure maps to 500", func(t *testing.T) {
		router, deps := newTestRouter(t)
		deps.subs.subscribeErr = oops.Code("SUBSCRIBE_FAILED").Wrap(errors.New("connection reset"))

		rec := postForm(router, "/subscriptions", url.Values{
			"name":  {"le guin"},
			"email": {"ursula_le_guin@gmail.com"},
		})
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})

	t.Run("confirmation email failure maps to 500", func(t *testing.T) {
		router, deps := newTestRouter(t)
		deps.subs.subscribeErr = oops.Code("CONFIRMATION_EMAIL_FAILED").Wrap(errors.New("relay down"))

		rec := postForm(router, "/subscriptions", url.Values{
			"name":  {"le guin"},
			"email": {"ursula_le_guin@gmail.com"},
		})
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}

func TestConfirm(t *testing.T) {
	const token = "a1B2c3D4e5F6g7H8i9J0k1L2m"

	t.Run("valid token", func(t *testing.T) {
		router, deps := newTestRouter(t)

		req := httptest.NewRequest(http.MethodGet, "/subscriptions/confirm?subscription_token="+token, nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, token, deps.subs.gotToken)
	})

	t.Run("missing token maps to 400", func(t *testing.T) {
		router, deps := newTestRouter(t)

		req := httptest.NewRequest(http.MethodGet, "/subscriptions/confirm", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Empty(t, deps.subs.gotToken)
	})

	t.Run("malformed token maps to 401 without service call", func(t *testing.T) {
		router, deps := newTestRouter(t)

		req := httptest.NewRequest(http.MethodGet, "/subscriptions/confirm?subscription_token=too-short!", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Empty(t, deps.subs.gotToken)
	})

	t.Run("unknown token maps to 401", func(t *testing.T) {
		router, deps := newTestRouter(t)
		deps.subs.confirmErr = oops.Code("TOKEN_NOT_FOUND").Errorf("no subscriber for token")

		req := httptest.NewRequest(http.MethodGet, "/subscriptions/confirm?subscription_token="+token, nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("repository failure maps to 500", func(t *testing.T) {
		router, deps := newTestRouter(t)
		deps.subs.confirmErr = oops.Code("CONFIRM_FAILED").Wrap(errors.New("connection reset"))

		req := httptest.NewRequest(http.MethodGet, "/subscriptions/confirm?subscription_token="+token, nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}

func postNewsletter(router http.Handler, body string, auth bool) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/newsletters", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if auth {
		req.SetBasicAuth("genly.ai", "everything-has-to-memorable")
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

const validIssueJSON = `{
	"title": "Issue #1",
	"content": {
		"html": "<p>Newsletter body</p>",
		"text": "Newsletter body"
	}
}`

func TestPublish(t *testing.T) {
	t.Run("authenticated publish", func(t *testing.T) {
		router, deps := newTestRouter(t)

		rec := postNewsletter(router, validIssueJSON, true)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "genly.ai", deps.validator.gotUsername)
		assert.Equal(t, "everything-has-to-memorable", deps.validator.gotPassword)
		assert.Equal(t, newsletter.Issue{
			Title: "Issue #1",
			HTML:  "<p>Newsletter body</p>",
			Text:  "Newsletter body",
		}, deps.newsletters.gotIssue)
	})

	t.Run("missing credentials", func(t *testing.T) {
		router, deps := newTestRouter(t)

		rec := postNewsletter(router, validIssueJSON, false)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, `Basic realm="publish"`, rec.Header().Get("WWW-Authenticate"))
		assert.Zero(t, deps.newsletters.calls)
	})

	t.Run("rejected credentials", func(t *testing.T) {
		router, deps := newTestRouter(t)
		deps.validator.err = oops.Code("AUTH_INVALID_CREDENTIALS").Errorf("invalid username or password")

		rec := postNewsletter(router, validIssueJSON, true)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, `Basic realm="publish"`, rec.Header().Get("WWW-Authenticate"))
		assert.Zero(t, deps.newsletters.calls)
	})

	t.Run("validator backend failure maps to 500", func(t *testing.T) {
		router, deps := newTestRouter(t)
		deps.validator.err = oops.Code("AUTH_VALIDATE_FAILED").Wrap(errors.New("connection reset"))

		rec := postNewsletter(router, validIssueJSON, true)

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Zero(t, deps.newsletters.calls)
	})

	t.Run("malformed JSON maps to 400", func(t *testing.T) {
		router, deps := newTestRouter(t)

		rec := postNewsletter(router, `{"title": `, true)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Zero(t, deps.newsletters.calls)
	})

	t.Run("invalid issue maps to 400", func(t *testing.T) {
		router, deps := newTestRouter(t)
		deps.newsletters.publishErr = oops.Code("VALIDATION_FAILED").Errorf("issue title is required")

		rec := postNewsletter(router, `{"content": {"text": "body"}}`, true)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("delivery failure maps to 500", func(t *testing.T) {
		router, deps := newTestRouter(t)
		deps.newsletters.publishErr = oops.Code("PUBLISH_FAILED").Wrap(errors.New("relay down"))

		rec := postNewsletter(router, validIssueJSON, true)
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}

func TestServerLifecycle(t *testing.T) {
	router, _ := newTestRouter(t)
	server := httpapi.NewServer("127.0.0.1:0", router)

	errCh, err := server.Start()
	require.NoError(t, err)
	require.NotEmpty(t, server.Addr())

	resp, err := http.Get("http://" + server.Addr() + "/health_check")
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, server.Stop(ctx))

	if serveErr, open := <-errCh; open {
		t.Fatalf("unexpected serve error: %v", serveErr)
	}
}
