package apierrors

import (
	"embed"
	"os"
	"path/filepath"
	"sync"

	"github.com/nicksnyder/go-i18n/v2/i18n"
	"github.com/pelletier/go-toml/v2"
	"go.uber.org/zap"
	"golang.org/x/text/language"
)

//go:embed locales/*.toml
var builtin embed.FS

var (
	bundle     *i18n.Bundle
	bundleOnce sync.Once
)

// Bundle returns the message bundle, loading the built-in translations on
// first use.
func Bundle() *i18n.Bundle {
	bundleOnce.Do(func() {
		bundle = i18n.NewBundle(language.English)
		bundle.RegisterUnmarshalFunc("toml", toml.Unmarshal)

		entries, err := builtin.ReadDir("locales")
		if err != nil {
			zap.L().Error("failed to list built-in translations", zap.Error(err))
			return
		}
		for _, e := range entries {
			data, err := builtin.ReadFile("locales/" + e.Name())
			if err != nil {
				zap.L().Warn("failed to read translation file", zap.String("file", e.Name()), zap.Error(err))
				continue
			}
			if _, err := bundle.ParseMessageFileBytes(data, e.Name()); err != nil {
				zap.L().Warn("failed to parse translation file", zap.String("file", e.Name()), zap.Error(err))
			}
		}
	})
	return bundle
}

// LoadDir adds the translation files found in dir on top of the built-in
// ones. An empty dir is a no-op.
func LoadDir(dir string) error {
	if dir == "" {
		return nil
	}
	files, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	b := Bundle()
	for _, f := range files {
		if f.IsDir() {
			continue
		}
		if _, err := b.LoadMessageFile(filepath.Join(dir, f.Name())); err != nil {
			zap.L().Warn("failed to load translation file", zap.String("file", f.Name()), zap.Error(err))
		}
	}
	return nil
}

// Translate returns the message for msgKey in lang, falling back to English
// and then to the key itself.
func Translate(msgKey, lang string) string {
	l := i18n.NewLocalizer(Bundle(), lang, LanguageEn)
	msg, err := l.Localize(&i18n.LocalizeConfig{MessageID: msgKey})
	if err != nil {
		zap.L().Warn("translation not found", zap.String("lang", lang), zap.String("message_id", msgKey), zap.Error(err))
		return msgKey
	}
	return msg
}
