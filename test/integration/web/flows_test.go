// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 autism-tools Contributors

//go:build integration

package web_test

import (
	"context"
	"fmt"
	"net/http"
	"time"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention
)

// uniqueEmail keeps specs independent on the shared database.
func uniqueEmail(prefix string) string {
	return fmt.Sprintf("%s-%d@example.com", prefix, time.Now().UnixNano())
}

var _ = Describe("Account flow", func() {
	It("registers, signs in, uses the tools, and signs out", func() {
		v := newVisitor()
		email := uniqueEmail("flow")

		res := v.register("Ada", email, "correct horse")
		Expect(res.status).To(Equal(http.StatusOK))
		Expect(res.path).To(Equal("/login"))
		Expect(res.body).To(ContainSubstring("Account created. You can now log in."))

		res = v.login(email, "correct horse")
		Expect(res.path).To(Equal("/dashboard"))
		Expect(res.body).To(ContainSubstring("Hello, Ada"))
		Expect(res.body).To(ContainSubstring("Logged in successfully."))

		res = v.get("/word-board")
		Expect(res.status).To(Equal(http.StatusOK))
		Expect(res.body).To(ContainSubstring("Toilet"))

		res = v.get("/logout")
		Expect(res.path).To(Equal("/"))
		Expect(res.body).To(ContainSubstring("You have been logged out."))

		res = v.get("/dashboard")
		Expect(res.path).To(Equal("/login"))
		Expect(res.body).NotTo(ContainSubstring("Hello, Ada"))
	})

	It("returns to the page that required sign-in", func() {
		v := newVisitor()
		email := uniqueEmail("next")
		v.register("Grace", email, "correct horse")

		res := v.get("/word-board")
		Expect(res.path).To(Equal("/login"))
		Expect(res.body).To(ContainSubstring("You need to sign in before using the tools."))

		res = v.submit("/login?next=%2Fword-board", "/login", map[string][]string{
			"email":    {email},
			"password": {"correct horse"},
			"next":     {"/word-board"},
		})
		Expect(res.path).To(Equal("/word-board"))
	})
})

var _ = Describe("Credential store", func() {
	It("treats email case and whitespace as the same account", func() {
		v := newVisitor()
		suffix := time.Now().UnixNano()
		mixed := fmt.Sprintf("User-%d@Example.com", suffix)
		lower := fmt.Sprintf("user-%d@example.com", suffix)

		res := v.register("Alan", mixed, "correct horse")
		Expect(res.path).To(Equal("/login"))

		res = v.register("Alan", "  "+lower+" ", "correct horse")
		Expect(res.path).To(Equal("/register"))
		Expect(res.body).To(ContainSubstring("An account with that email already exists."))

		res = v.login(lower, "correct horse")
		Expect(res.path).To(Equal("/dashboard"))

		var count int
		Expect(env.pool.QueryRow(context.Background(),
			`SELECT count(*) FROM users WHERE email = $1`, lower).Scan(&count)).To(Succeed())
		Expect(count).To(Equal(1))
	})

	It("rejects a wrong password without revealing whether the account exists", func() {
		v := newVisitor()
		email := uniqueEmail("wrong")
		v.register("Edsger", email, "correct horse")

		known := v.login(email, "wrong horse")
		unknown := v.login(uniqueEmail("nobody"), "correct horse")

		for _, res := range []result{known, unknown} {
			Expect(res.status).To(Equal(http.StatusOK))
			Expect(res.path).To(Equal("/login"))
			Expect(res.body).To(ContainSubstring("Invalid email or password."))
		}
	})

	It("stores an argon2id hash, never the password", func() {
		v := newVisitor()
		email := uniqueEmail("hash")
		v.register("Barbara", email, "correct horse")

		var hash string
		Expect(env.pool.QueryRow(context.Background(),
			`SELECT password_hash FROM users WHERE email = $1`, email).Scan(&hash)).To(Succeed())
		Expect(hash).To(HavePrefix("$argon2id$"))
		Expect(hash).NotTo(ContainSubstring("correct horse"))
	})
})

var _ = Describe("Validation", func() {
	It("reports every registration problem at once", func() {
		v := newVisitor()
		res := v.submit("/register", "/register", map[string][]string{
			"first_name":            {"Ada"},
			"last_name":             {"Tester"},
			"email":                 {"not-an-email"},
			"password":              {"abc"},
			"password_confirmation": {"xyz"},
		})
		Expect(res.status).To(Equal(http.StatusOK))
		Expect(res.body).To(ContainSubstring("Invalid email address."))
		Expect(res.body).To(ContainSubstring("Field must be at least 6 characters long."))
		Expect(res.body).To(ContainSubstring("Passwords must match."))
	})
})
