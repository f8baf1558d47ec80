// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Inkletter Contributors

//go:build integration

package integration

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/oklog/ulid/v2"
	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/inkletter/inkletter/internal/auth"
	authpg "github.com/inkletter/inkletter/internal/auth/postgres"
	"github.com/inkletter/inkletter/internal/httpapi"
	"github.com/inkletter/inkletter/internal/newsletter"
	"github.com/inkletter/inkletter/internal/store"
	"github.com/inkletter/inkletter/internal/subscription"
	subpg "github.com/inkletter/inkletter/internal/subscription/postgres"
)

// capturedEmail is one outbound message recorded by captureSender.
type capturedEmail struct {
	Recipient string
	Subject   string
	HTMLBody  string
	TextBody  string
}

// captureSender records outbound email instead of delivering it.
type captureSender struct {
	mu   sync.Mutex
	sent []capturedEmail
}

func (s *captureSender) Send(_ context.Context, recipient, subject, htmlBody, textBody string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, capturedEmail{recipient, subject, htmlBody, textBody})
	return nil
}

func (s *captureSender) all() []capturedEmail {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]capturedEmail, len(s.sent))
	copy(out, s.sent)
	return out
}

// testEnv holds the running stack for one spec.
type testEnv struct {
	ctx       context.Context
	cancel    context.CancelFunc
	container testcontainers.Container
	pool      *pgxpool.Pool
	sender    *captureSender
	api       *httptest.Server
}

func setupTestEnv() (*testEnv, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	env := &testEnv{ctx: ctx, cancel: cancel}

	container, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("inkletter_test"),
		postgres.WithUsername("inkletter"),
		postgres.WithPassword("inkletter"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		cancel()
		return nil, err
	}
	env.container = container

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		env.teardown()
		return nil, err
	}

	migrator, err := store.NewMigrator(connStr)
	if err != nil {
		env.teardown()
		return nil, err
	}
	if err := migrator.Up(); err != nil {
		env.teardown()
		return nil, err
	}
	if err := migrator.Close(); err != nil {
		env.teardown()
		return nil, err
	}

	pool, err := store.Connect(ctx, connStr)
	if err != nil {
		env.teardown()
		return nil, err
	}
	env.pool = pool

	env.sender = &captureSender{}

	subscriberRepo := subpg.NewSubscriberRepository(pool)
	subscriptionSvc, err := subscription.NewService(subscriberRepo, env.sender, "http://inkletter.test", nil)
	if err != nil {
		env.teardown()
		return nil, err
	}
	newsletterSvc, err := newsletter.NewService(subscriberRepo, env.sender, nil, nil)
	if err != nil {
		env.teardown()
		return nil, err
	}
	validator, err := auth.NewValidator(authpg.NewCredentialRepository(pool), auth.NewArgon2idHasher())
	if err != nil {
		env.teardown()
		return nil, err
	}

	router := httpapi.NewRouter(&httpapi.RouterDeps{
		Subscriptions: subscriptionSvc,
		Newsletters:   newsletterSvc,
		Credentials:   validator,
	})
	env.api = httptest.NewServer(router)

	return env, nil
}

func (env *testEnv) teardown() {
	if env.api != nil {
		env.api.Close()
	}
	if env.pool != nil {
		env.pool.Close()
	}
	if env.container != nil {
		_ = env.container.Terminate(context.Background())
	}
	env.cancel()
}

// createPublisher provisions a user the way the useradd command does.
func (env *testEnv) createPublisher(username, password string) error {
	hash, err := auth.NewArgon2idHasher().Hash(password)
	if err != nil {
		return err
	}
	repo := authpg.NewCredentialRepository(env.pool)
	return repo.CreateUser(env.ctx, ulid.Make(), username, hash)
}

func (env *testEnv) subscribe(name, email string) (*http.Response, error) {
	form := url.Values{"name": {name}, "email": {email}}
	return http.Post(
		env.api.URL+"/subscriptions",
		"application/x-www-form-urlencoded",
		strings.NewReader(form.Encode()),
	)
}

// confirmationLink pulls the confirmation URL out of the last captured email
// sent to the given recipient.
func (env *testEnv) confirmationLink(recipient string) string {
	for _, msg := range env.sender.all() {
		if msg.Recipient != recipient {
			continue
		}
		for _, word := range strings.Fields(msg.TextBody) {
			if strings.Contains(word, "/subscriptions/confirm?subscription_token=") {
				return word
			}
		}
	}
	return ""
}

func (env *testEnv) publish(username, password, body string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(env.ctx, http.MethodPost, env.api.URL+"/newsletters", strings.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if username != "" {
		req.SetBasicAuth(username, password)
	}
	return http.DefaultClient.Do(req)
}

const issueBody = `{
	"title": "Issue #1",
	"content": {
		"html": "<p>Newsletter body</p>",
		"text": "Newsletter body"
	}
}`

var _ = Describe("Newsletter flow", func() {
	var env *testEnv

	BeforeEach(func() {
		var err error
		env, err = setupTestEnv()
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		env.teardown()
	})

	It("carries a subscriber from signup through confirmation to delivery", func() {
		resp, err := env.subscribe("le guin", "ursula_le_guin@gmail.com")
		Expect(err).NotTo(HaveOccurred())
		resp.Body.Close()
		Expect(resp.StatusCode).To(Equal(http.StatusOK))

		link := env.confirmationLink("ursula_le_guin@gmail.com")
		Expect(link).NotTo(BeEmpty())

		// Rewrite the configured base URL onto the test server.
		parsed, err := url.Parse(link)
		Expect(err).NotTo(HaveOccurred())
		confirmResp, err := http.Get(env.api.URL + parsed.Path + "?" + parsed.RawQuery)
		Expect(err).NotTo(HaveOccurred())
		confirmResp.Body.Close()
		Expect(confirmResp.StatusCode).To(Equal(http.StatusOK))

		Expect(env.createPublisher("genly.ai", "everything-has-to-memorable")).To(Succeed())

		publishResp, err := env.publish("genly.ai", "everything-has-to-memorable", issueBody)
		Expect(err).NotTo(HaveOccurred())
		publishResp.Body.Close()
		Expect(publishResp.StatusCode).To(Equal(http.StatusOK))

		var newsletterEmails []capturedEmail
		for _, msg := range env.sender.all() {
			if msg.Subject == "Issue #1" {
				newsletterEmails = append(newsletterEmails, msg)
			}
		}
		Expect(newsletterEmails).To(HaveLen(1))
		Expect(newsletterEmails[0].Recipient).To(Equal("ursula_le_guin@gmail.com"))
	})

	It("does not deliver issues to unconfirmed subscribers", func() {
		resp, err := env.subscribe("le guin", "ursula_le_guin@gmail.com")
		Expect(err).NotTo(HaveOccurred())
		resp.Body.Close()

		Expect(env.createPublisher("genly.ai", "everything-has-to-memorable")).To(Succeed())

		publishResp, err := env.publish("genly.ai", "everything-has-to-memorable", issueBody)
		Expect(err).NotTo(HaveOccurred())
		publishResp.Body.Close()
		Expect(publishResp.StatusCode).To(Equal(http.StatusOK))

		for _, msg := range env.sender.all() {
			Expect(msg.Subject).NotTo(Equal("Issue #1"))
		}
	})

	It("rejects publishing with bad credentials", func() {
		Expect(env.createPublisher("genly.ai", "everything-has-to-memorable")).To(Succeed())

		resp, err := env.publish("genly.ai", "wrong-password", issueBody)
		Expect(err).NotTo(HaveOccurred())
		resp.Body.Close()
		Expect(resp.StatusCode).To(Equal(http.StatusUnauthorized))
		Expect(resp.Header.Get("WWW-Authenticate")).To(Equal(`Basic realm="publish"`))
	})

	It("honors a second subscription with a fresh token", func() {
		resp, err := env.subscribe("le guin", "ursula_le_guin@gmail.com")
		Expect(err).NotTo(HaveOccurred())
		resp.Body.Close()

		resp, err = env.subscribe("ursula", "ursula_le_guin@gmail.com")
		Expect(err).NotTo(HaveOccurred())
		resp.Body.Close()
		Expect(resp.StatusCode).To(Equal(http.StatusOK))

		// Confirm using the second email's link.
		link := env.confirmationLink("ursula_le_guin@gmail.com")
		Expect(link).NotTo(BeEmpty())
		parsed, err := url.Parse(link)
		Expect(err).NotTo(HaveOccurred())
		confirmResp, err := http.Get(env.api.URL + parsed.Path + "?" + parsed.RawQuery)
		Expect(err).NotTo(HaveOccurred())
		confirmResp.Body.Close()
		Expect(confirmResp.StatusCode).To(Equal(http.StatusOK))
	})
})
