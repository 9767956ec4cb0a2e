// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

//go:build integration

package auth_test

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"sync"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/holomush/authcore/internal/auth"
)

type response struct {
	status  int
	body    map[string]any
	cookies []*http.Cookie
}

func post(path, body string) response {
	resp, err := env.server.Client().Post(env.server.URL+path, "application/json", strings.NewReader(body))
	Expect(err).NotTo(HaveOccurred())
	return read(resp)
}

func getMe(token string) response {
	req, err := http.NewRequestWithContext(env.ctx, http.MethodGet, env.server.URL+"/auth/me", nil)
	Expect(err).NotTo(HaveOccurred())
	req.AddCookie(&http.Cookie{Name: auth.SessionCookieName, Value: token})
	resp, err := env.server.Client().Do(req)
	Expect(err).NotTo(HaveOccurred())
	return read(resp)
}

func read(resp *http.Response) response {
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	Expect(err).NotTo(HaveOccurred())

	r := response{status: resp.StatusCode, cookies: resp.Cookies()}
	if len(data) > 0 {
		Expect(json.Unmarshal(data, &r.body)).To(Succeed())
	}
	return r
}

func sessionToken(r response) string {
	for _, c := range r.cookies {
		if c.Name == auth.SessionCookieName {
			return c.Value
		}
	}
	return ""
}

var _ = Describe("HTTP authentication against PostgreSQL", func() {
	BeforeEach(func() {
		env.truncate()
	})

	It("registers, signs in and introspects the same account", func() {
		registered := post("/auth/register", `{"name":"Ann","email":"ann@x.com","password":"Secr3t!","role":"user"}`)
		Expect(registered.status).To(Equal(http.StatusCreated))
		account := registered.body["account"].(map[string]any)
		Expect(account["id"]).To(BeEquivalentTo(1))
		Expect(account["email"]).To(Equal("ann@x.com"))
		Expect(account).NotTo(HaveKey("passwordHash"))

		login := post("/auth/login", `{"email":"ann@x.com","password":"Secr3t!"}`)
		Expect(login.status).To(Equal(http.StatusOK))
		Expect(login.body["account"].(map[string]any)["id"]).To(BeEquivalentTo(1))

		me := getMe(sessionToken(login))
		Expect(me.status).To(Equal(http.StatusOK))
		Expect(me.body["name"]).To(Equal("Ann"))
	})

	It("stores only a salted hash", func() {
		Expect(post("/auth/register", `{"name":"Ann","email":"ann@x.com","password":"Secr3t!"}`).status).
			To(Equal(http.StatusCreated))

		var hash string
		Expect(env.pool.QueryRow(env.ctx, `SELECT password_hash FROM accounts WHERE email = 'ann@x.com'`).
			Scan(&hash)).To(Succeed())
		Expect(hash).To(HavePrefix("$argon2id$"))
		Expect(hash).NotTo(ContainSubstring("Secr3t!"))
	})

	It("hides whether the email exists", func() {
		Expect(post("/auth/register", `{"name":"Ann","email":"ann@x.com","password":"Secr3t!"}`).status).
			To(Equal(http.StatusCreated))

		wrong := post("/auth/login", `{"email":"ann@x.com","password":"wrong!"}`)
		unknown := post("/auth/login", `{"email":"nobody@x.com","password":"x"}`)

		Expect(wrong.status).To(Equal(http.StatusUnauthorized))
		Expect(unknown.status).To(Equal(http.StatusUnauthorized))
		Expect(wrong.body).To(Equal(unknown.body))
		Expect(wrong.body["code"]).To(Equal(auth.CodeInvalidCredentials))

		Expect(testutil.ToFloat64(counter(auth.OpAuthenticate, auth.CodeInvalidPassword))).To(BeNumerically(">=", 1))
		Expect(testutil.ToFloat64(counter(auth.OpAuthenticate, auth.CodeUserNotFound))).To(BeNumerically(">=", 1))
	})

	It("lets exactly one of many concurrent registrations win", func() {
		const racers = 8
		statuses := make([]int, racers)

		var wg sync.WaitGroup
		for i := range racers {
			wg.Add(1)
			go func() {
				defer wg.Done()
				defer GinkgoRecover()
				statuses[i] = post("/auth/register", `{"name":"Racer","email":"race@x.com","password":"Secr3t!"}`).status
			}()
		}
		wg.Wait()

		Expect(statuses).To(ContainElement(http.StatusCreated))
		created := 0
		for _, s := range statuses {
			if s == http.StatusCreated {
				created++
			} else {
				Expect(s).To(Equal(http.StatusConflict))
			}
		}
		Expect(created).To(Equal(1))

		var rows int
		Expect(env.pool.QueryRow(env.ctx, `SELECT count(*) FROM accounts WHERE email = 'race@x.com'`).
			Scan(&rows)).To(Succeed())
		Expect(rows).To(Equal(1))
	})

	It("signs out idempotently without revoking the token", func() {
		registered := post("/auth/register", `{"name":"Ann","email":"ann@x.com","password":"Secr3t!"}`)
		token := sessionToken(registered)
		Expect(token).NotTo(BeEmpty())

		for range 2 {
			out := post("/auth/logout", "")
			Expect(out.status).To(Equal(http.StatusNoContent))
			Expect(sessionToken(out)).To(BeEmpty())
		}

		Expect(getMe(token).status).To(Equal(http.StatusOK))
	})

	It("rejects a token whose account no longer exists", func() {
		registered := post("/auth/register", `{"name":"Ann","email":"ann@x.com","password":"Secr3t!"}`)
		token := sessionToken(registered)
		env.truncate()

		me := getMe(token)
		Expect(me.status).To(Equal(http.StatusUnauthorized))
		Expect(me.body["code"]).To(Equal(auth.CodeTokenInvalid))
	})
})
