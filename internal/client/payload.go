package client

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	log "github.com/sirupsen/logrus"
)

const payloadSelector = `script[type="application/json"], script[type="application/ld+json"]`

// embeddedJSON extracts the JSON payload of an HTML page. The upstream serves
// the regular storefront instead of the ajax answer when it ignores the
// X-Requested-With header. Bodies that do not look like HTML are left alone.
func embeddedJSON(body string) (string, bool) {
	trimmed := strings.TrimSpace(body)
	if !strings.HasPrefix(trimmed, "<") {
		return "", false
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(trimmed))
	if err != nil {
		log.Warnf("Failed to parse HTML answer: %v", err)
		return "", false
	}

	var payload string
	doc.Find(payloadSelector).EachWithBreak(func(i int, s *goquery.Selection) bool {
		text := strings.TrimSpace(s.Text())
		if text == "" {
			return true
		}
		payload = text
		return false
	})

	return payload, payload != ""
}
