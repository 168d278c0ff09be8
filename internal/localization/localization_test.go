package localization_test

import (
	"testing"
	"testing/fstest"

	"familyeats/backend/internal/localization"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	l, err := localization.Default()
	require.NoError(t, err)

	assert.Equal(t, "Report submitted", l.GetString("en", "message.report_submitted"))
	assert.Equal(t, "Скаргу надіслано", l.GetString("uk", "message.report_submitted"))
	assert.Equal(t, "🚫 Auto-removed review r1", l.Format("en", "alert.content_removed", "review", "r1"))
}

func TestGetString_Fallbacks(t *testing.T) {
	l, err := localization.NewLocalizer(fstest.MapFS{
		"en.json":   {Data: []byte(`{"greeting":"Hello","only_en":"English only"}`)},
		"uk.json":   {Data: []byte(`{"greeting":"Привіт"}`)},
		"README.md": {Data: []byte("ignored")},
	})
	require.NoError(t, err)

	assert.Equal(t, "Привіт", l.GetString("uk", "greeting"))
	assert.Equal(t, "English only", l.GetString("uk", "only_en"))
	assert.Equal(t, "Hello", l.GetString("fr", "greeting"))
	assert.Equal(t, "missing.key", l.GetString("en", "missing.key"))
}

func TestMatch(t *testing.T) {
	l, err := localization.Default()
	require.NoError(t, err)

	assert.Equal(t, "uk", l.Match("uk-UA,uk;q=0.9,en;q=0.8"))
	assert.Equal(t, "en", l.Match("en-GB"))
	assert.Equal(t, "en", l.Match("fr-FR"))
	assert.Equal(t, "en", l.Match(""))
	assert.Equal(t, "uk", l.Match("de;q=0.5, uk;q=0.9"))
}

func TestNewLocalizer_BadFile(t *testing.T) {
	_, err := localization.NewLocalizer(fstest.MapFS{"en.json": {Data: []byte(`{not json`)}})
	assert.Error(t, err)
}
