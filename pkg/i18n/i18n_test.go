package i18n

import (
	"context"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"
	"golang.org/x/text/message/catalog"
)

func TestSprintfUsesContextLanguage(t *testing.T) {
	ctx := context.Background()

	assert.Equal(t,
		"Invalid sort key: foo. Must be one of: id, name",
		Sprintf(ctx, "errors.invalid_sort_key", "foo", "id, name"))

	ru := WithLanguage(ctx, language.Russian)
	assert.Equal(t,
		"Недопустимый ключ сортировки: foo. Допустимые значения: id, name",
		Sprintf(ru, "errors.invalid_sort_key", "foo", "id, name"))

	// Regional variants resolve to their base catalog
	ruRU := WithLanguage(ctx, language.MustParse("ru-RU"))
	assert.Equal(t,
		`Недопустимое направление. Должно быть "asc" или "desc".`,
		Sprintf(ruRU, "errors.invalid_sort_direction"))
}

func TestFallbackToEnglish(t *testing.T) {
	ctx := WithLanguage(context.Background(), language.Japanese)
	assert.Equal(t,
		`Invalid direction. Must be "asc" or "desc".`,
		Sprintf(ctx, "errors.invalid_sort_direction"))
}

func TestFromContext(t *testing.T) {
	_, ok := FromContext(context.Background())
	assert.False(t, ok)

	tag, ok := FromContext(WithLanguage(context.Background(), language.Russian))
	assert.True(t, ok)
	assert.Equal(t, language.Russian, tag)
}

func TestMatch(t *testing.T) {
	assert.Equal(t, language.Russian, Match("ru-RU,ru;q=0.9,en;q=0.8"))
	assert.Equal(t, language.English, Match("en-GB"))
	assert.Equal(t, DefaultLanguage, Match("ja"))
	assert.Equal(t, DefaultLanguage, Match("%%%"))
	assert.ElementsMatch(t, []language.Tag{language.English, language.Russian}, Supported())
}

func TestLoadRejectsBrokenCatalogs(t *testing.T) {
	b := catalog.NewBuilder()

	_, err := load(b, fstest.MapFS{})
	assert.Error(t, err)

	_, err = load(b, fstest.MapFS{
		"locales/xx.yaml": {Data: []byte("locale: not a tag!\nmessages: {}\n")},
	})
	assert.Error(t, err)

	tags, err := load(b, fstest.MapFS{
		"locales/de.yaml": {Data: []byte("locale: de\nmessages:\n  hello: Hallo\n")},
	})
	require.NoError(t, err)
	assert.Equal(t, []language.Tag{language.German}, tags)
}
