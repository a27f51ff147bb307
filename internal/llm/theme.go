package llm

import (
	"regexp"
	"strings"
)

var themeRe = regexp.MustCompile(`\[THEME:([^\]]*)\]`)

// ExtractTheme pulls the theme tag the model is asked to append to every
// answer. It returns the theme and the answer with the tag removed; when
// no tag is present the theme is empty and the answer comes back as is.
func ExtractTheme(answer string) (theme, cleaned string) {
	match := themeRe.FindStringSubmatch(answer)
	if match == nil {
		return "", strings.TrimSpace(answer)
	}
	theme = strings.TrimSpace(match[1])
	cleaned = strings.TrimSpace(themeRe.ReplaceAllString(answer, ""))
	return theme, cleaned
}
