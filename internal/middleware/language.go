package middleware

import (
	"strings"

	"compliance-tracker-api/internal/apierrors"

	"github.com/gin-gonic/gin"
	"golang.org/x/text/language"
)

var supported = language.NewMatcher([]language.Tag{
	language.English,
	language.Filipino,
})

// LanguageMiddleware picks the response language from Accept-Language.
func LanguageMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		lang := apierrors.LanguageEn
		if header := c.GetHeader("Accept-Language"); header != "" {
			tags, _, err := language.ParseAcceptLanguage(header)
			if err == nil && len(tags) > 0 {
				_, idx, conf := supported.Match(tags...)
				if conf != language.No && idx == 1 {
					lang = apierrors.LanguageFil
				}
			}
		}
		c.Set("lang", lang)
		c.Next()
	}
}

func GetLang(c *gin.Context) string {
	if lang, exists := c.Get("lang"); exists {
		if s, ok := lang.(string); ok && strings.TrimSpace(s) != "" {
			return s
		}
	}
	return apierrors.LanguageEn
}
