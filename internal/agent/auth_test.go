package agent

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"go-outreach-automation/internal/logger"
	"go-outreach-automation/internal/page"
	"go-outreach-automation/internal/page/htmlpage"
	"go-outreach-automation/utils"
)

func newAuthenticator() *Authenticator {
	cfg := testConfig()
	return NewAuthenticator(cfg, utils.NewPacer(cfg.Pacing), nil, logger.Discard())
}

func TestAuthenticate(t *testing.T) {
	const directForm = `<html><body>
		<input placeholder="логин или номер телефона"><input placeholder="пароль">
		<button data-href="` + homeURL + `">Войти</button>
	</body></html>`

	tests := []struct {
		name string
		site htmlpage.Site
		want bool
	}{
		{"success", htmlpage.Site{loginURL: loginPage, homeURL: homePage}, true},
		{"form without switch", htmlpage.Site{loginURL: directForm, homeURL: homePage}, true},
		{"location unchanged", htmlpage.Site{loginURL: brokenLoginPage}, false},
		{"login page unreachable", htmlpage.Site{}, false},
		{"fields missing", htmlpage.Site{loginURL: homePage}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := htmlpage.New(tt.site)
			assert.Equal(t, tt.want, newAuthenticator().Authenticate(context.Background(), b))
		})
	}
}

func TestAuthenticate_TypesCredentials(t *testing.T) {
	b := htmlpage.New(htmlpage.Site{loginURL: loginPage, homeURL: homePage})
	a := newAuthenticator()

	// stop before submitting so that the form can be inspected
	assert.NoError(t, b.Navigate(loginURL))
	assert.NoError(t, a.fill(context.Background(), b, a.selectors.UsernameInput, "tutor"))
	assert.NoError(t, a.fill(context.Background(), b, a.selectors.PasswordInput, "secret"))

	user, err := b.FindOne(page.CSS(a.selectors.UsernameInput))
	assert.NoError(t, err)
	v, _ := user.Attribute("value")
	assert.Equal(t, "tutor", v)

	submit, err := a.submitControl(b)
	assert.NoError(t, err)
	text, _ := submit.Text()
	assert.Equal(t, "Войти", text)
}

func TestAuthenticate_ClosedSessionIsNotRetried(t *testing.T) {
	b := htmlpage.New(htmlpage.Site{loginURL: loginPage, homeURL: homePage})
	b.Kill()
	assert.False(t, newAuthenticator().Authenticate(context.Background(), b))
	assert.Zero(t, b.Navigations[loginURL])
}
