package browser

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/playwright-community/playwright-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadCookies(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cookies.json")
	require.NoError(t, os.WriteFile(path, []byte(`[
		{"name": "session", "value": "abc", "domain": ".repetit.ru", "path": "/", "expires": 1893456000, "httpOnly": true, "secure": true, "sameSite": "Lax"},
		{"name": "theme", "value": "dark", "domain": "repetit.ru", "sameSite": "no_restriction"},
		{"name": "", "value": "skipped", "domain": "repetit.ru"}
	]`), 0o600))

	cookies, err := LoadCookies(path)
	require.NoError(t, err)
	require.Len(t, cookies, 2)

	session := cookies[0]
	assert.Equal(t, "session", session.Name)
	assert.Equal(t, ".repetit.ru", *session.Domain)
	assert.Equal(t, 1893456000.0, *session.Expires)
	assert.True(t, *session.HttpOnly)
	assert.True(t, *session.Secure)
	assert.Equal(t, playwright.SameSiteAttributeLax, session.SameSite)

	theme := cookies[1]
	assert.Equal(t, "/", *theme.Path)
	assert.Nil(t, theme.Expires)
	assert.Nil(t, theme.HttpOnly)
	assert.Equal(t, playwright.SameSiteAttributeNone, theme.SameSite)
}

func TestLoadCookies_Errors(t *testing.T) {
	_, err := LoadCookies(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"not": "an array"}`), 0o600))
	_, err = LoadCookies(path)
	assert.Error(t, err)
}

func TestSelector(t *testing.T) {
	tests := []struct {
		name string
		loc  []string
		want string
	}{
		{"single token", []string{"Войти"}, `xpath=//body//*[text()[contains(., 'Войти')]]`},
		{"two tokens", []string{"чат", "клиент"}, `xpath=//body//*[text()[contains(., 'чат')]][text()[contains(., 'клиент')]]`},
		{"apostrophe", []string{"it's"}, `xpath=//body//*[text()[contains(., "it's")]]`},
		{"both quotes", []string{`a'b"c`}, `xpath=//body//*[text()[contains(., concat('a', "'", 'b"c'))]]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, textSelector(tt.loc))
		})
	}
}
