package scrape

import (
	"strings"
)

// BlockType describes the kind of anti-bot wall detected on a page.
type BlockType string

const (
	BlockNone       BlockType = ""
	BlockCloudflare BlockType = "cloudflare"
	BlockCaptcha    BlockType = "captcha"
	BlockJSShell    BlockType = "js_shell"
)

// DetectBlock inspects rendered HTML for signs of anti-bot protection.
// Detection is advisory; the crawler records it and keeps going.
func DetectBlock(html string) BlockType {
	lower := strings.ToLower(html)

	if strings.Contains(lower, "checking your browser") ||
		strings.Contains(lower, "cf-browser-verification") ||
		strings.Contains(lower, "cf-challenge") ||
		(strings.Contains(lower, "cloudflare") && strings.Contains(lower, "challenge")) {
		return BlockCloudflare
	}

	for _, marker := range []string{"g-recaptcha", "h-captcha", "hcaptcha.com", "captcha"} {
		if strings.Contains(lower, marker) {
			return BlockCaptcha
		}
	}

	// A tiny document that only asks for JavaScript or redirects is a shell.
	if len(html) < 2000 {
		if strings.Contains(lower, "<noscript") && strings.Contains(lower, "enable javascript") {
			return BlockJSShell
		}
		if strings.Contains(lower, `http-equiv="refresh"`) {
			return BlockJSShell
		}
	}

	return BlockNone
}
