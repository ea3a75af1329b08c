// Package bypass detects when a search engine served a block or
// challenge page instead of real results. A blocked fetch must count
// as zero suggestions, not be scraped for garbage terms.
package bypass

import (
	"bytes"
	"net/http"
	"strings"
)

// Detector inspects a raw response and reports whether it is a block
// page, naming the blocking mechanism.
type Detector func(statusCode int, header http.Header, body []byte) (blocked bool, source string)

// DefaultDetectors covers the challenge pages seen when scraping
// Google and Yahoo Japan result pages at volume.
func DefaultDetectors() []Detector {
	return []Detector{
		detectGoogleSorry,
		detectGoogleConsent,
		detectYahooCaptcha,
		detectCloudflare,
	}
}

// Analyze runs the detectors in order and returns the first hit.
func Analyze(statusCode int, header http.Header, body []byte, detectors []Detector) (bool, string) {
	for _, d := range detectors {
		if blocked, source := d(statusCode, header, body); blocked {
			return true, source
		}
	}
	return false, ""
}

// detectGoogleSorry matches the "unusual traffic" interstitial, served
// as a 429 or as a redirect to /sorry/.
func detectGoogleSorry(statusCode int, header http.Header, body []byte) (bool, string) {
	if statusCode == http.StatusTooManyRequests {
		return true, "google_sorry"
	}
	if loc := header.Get("Location"); strings.Contains(loc, "/sorry/") {
		return true, "google_sorry"
	}
	if bytes.Contains(body, []byte("/sorry/index")) ||
		bytes.Contains(body, []byte("unusual traffic from your computer network")) ||
		bytes.Contains(body, []byte("通常と異なるトラフィック")) {
		return true, "google_sorry"
	}
	return false, ""
}

// detectGoogleConsent matches the EU/cookie consent wall, which
// replaces the whole result page when cookies are missing.
func detectGoogleConsent(statusCode int, header http.Header, body []byte) (bool, string) {
	if loc := header.Get("Location"); strings.Contains(loc, "consent.google.com") {
		return true, "google_consent"
	}
	if bytes.Contains(body, []byte("consent.google.com")) &&
		!bytes.Contains(body, []byte("id=\"search\"")) {
		return true, "google_consent"
	}
	return false, ""
}

func detectYahooCaptcha(statusCode int, header http.Header, body []byte) (bool, string) {
	if statusCode == http.StatusForbidden || statusCode == http.StatusOK {
		if bytes.Contains(body, []byte("captcha.yahoo.co.jp")) ||
			bytes.Contains(body, []byte("画像認証")) {
			return true, "yahoo_captcha"
		}
	}
	return false, ""
}

func detectCloudflare(statusCode int, header http.Header, body []byte) (bool, string) {
	if statusCode != http.StatusForbidden && statusCode != http.StatusServiceUnavailable {
		return false, ""
	}
	if strings.Contains(strings.ToLower(header.Get("Server")), "cloudflare") {
		return true, "cloudflare"
	}
	if bytes.Contains(body, []byte("cf-browser-verification")) ||
		bytes.Contains(body, []byte("cf-turnstile")) {
		return true, "cloudflare"
	}
	return false, ""
}
