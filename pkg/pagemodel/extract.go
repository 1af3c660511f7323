// Package pagemodel extracts the listing payload that album pages embed in an inline
// script block. Everything that knows about the page markup lives here.
package pagemodel

import (
	"bytes"
	"encoding/json"
	"regexp"

	"familyalbum/pkg/errors"
	"familyalbum/pkg/models"
)

var (
	cdataStart = []byte("CDATA[")
	cdataEnd   = []byte("]]>") // kept up to "]]" so the "//]]" suffix strips cleanly

	// Assignments the server appends to the same script block as the payload.
	selfUserIDPattern = regexp.MustCompile(`;?gon\.selfUserId="\d+";?`)
	colorMapPattern   = regexp.MustCompile(`;?gon\.familyUserIdToColorMap=\{[^}]*\};?`)

	payloadPrefix = []byte("window.gon={};gon.media=")
	payloadSuffix = []byte("//]]")
)

// Extractor parses album page bodies
type Extractor struct{}

// New returns an Extractor
func New() *Extractor {
	return &Extractor{}
}

// Extract implements the extraction contract for the album listing page
func (Extractor) Extract(body []byte) (*models.ListingPage, error) {
	return Extract(body)
}

// Payload returns the raw JSON payload embedded in body, with the wrapper and the
// injected assignments removed.
func Payload(body []byte) ([]byte, error) {
	start := bytes.Index(body, cdataStart)
	if start < 0 {
		return nil, errors.New(errors.ErrorTypeProtocolMismatch, "page has no CDATA payload")
	}
	script := body[start+len(cdataStart):]

	if end := bytes.Index(script, cdataEnd); end >= 0 {
		script = script[:end+2]
	} else if end := bytes.IndexByte(script, '>'); end >= 0 {
		script = script[:end]
	}

	script = selfUserIDPattern.ReplaceAll(script, nil)
	script = colorMapPattern.ReplaceAll(script, nil)
	script = bytes.TrimSpace(script)
	script = bytes.TrimPrefix(script, payloadPrefix)
	script = bytes.TrimSpace(bytes.TrimSuffix(script, payloadSuffix))
	script = bytes.TrimRight(script, "; \t\r\n")

	return script, nil
}

// Extract locates and decodes the listing payload
func Extract(body []byte) (*models.ListingPage, error) {
	payload, err := Payload(body)
	if err != nil {
		return nil, err
	}

	var page models.ListingPage
	if err := json.Unmarshal(payload, &page); err != nil {
		return nil, errors.Wrap(errors.ErrorTypeMalformedPayload, err, "listing payload is not valid JSON")
	}
	return &page, nil
}
