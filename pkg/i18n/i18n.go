// Package i18n carries the request language through context and renders
// localized messages from the embedded catalogs.
package i18n

import (
	"context"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// DefaultLanguage is used when the context carries no language
var DefaultLanguage = language.English

type languageKey struct{}

// WithLanguage returns a context carrying tag
func WithLanguage(ctx context.Context, tag language.Tag) context.Context {
	return context.WithValue(ctx, languageKey{}, tag)
}

// FromContext returns the language stored in ctx, if any
func FromContext(ctx context.Context) (language.Tag, bool) {
	tag, ok := ctx.Value(languageKey{}).(language.Tag)
	return tag, ok
}

// Supported returns the languages with a registered catalog
func Supported() []language.Tag {
	return append([]language.Tag(nil), supported...)
}

// Match picks the best supported language for an Accept-Language header value
func Match(acceptLanguage string) language.Tag {
	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(tags) == 0 {
		return DefaultLanguage
	}
	return closest(tags...)
}

// closest maps requested languages onto a supported catalog language
func closest(tags ...language.Tag) language.Tag {
	_, idx, confidence := language.NewMatcher(supported).Match(tags...)
	if confidence == language.No {
		return DefaultLanguage
	}
	return supported[idx]
}

// Printer returns a printer for the context language
func Printer(ctx context.Context) *message.Printer {
	tag, ok := FromContext(ctx)
	if !ok {
		tag = DefaultLanguage
	}
	return message.NewPrinter(closest(tag), message.Catalog(builder))
}

// Sprintf renders the message registered under key in the context language
func Sprintf(ctx context.Context, key string, args ...interface{}) string {
	return Printer(ctx).Sprintf(key, args...)
}
