package pagemodel

import (
	"encoding/json"
	"fmt"
	"testing"

	"familyalbum/pkg/errors"
	"familyalbum/pkg/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const samplePayload = `{"hasNext":true,"hasPrev":false,"currentPage":1,"mediaFiles":[` +
	`{"id":1,"uuid":"AAA","mediaType":"photo","contentType":"image/jpeg","tookAt":"2021-01-02T03:04:05Z","expiringUrl":"https://cdn.test/a?sig=1&exp=2"},` +
	`{"id":2,"uuid":"BBB","mediaType":"movie","contentType":"video/mp4","tookAt":"2021-01-03T03:04:05Z","latitude":-33.9,"longitude":151.2,"expiringVideoUrl":"https://mitene.us/f/x/media_files_playlist/2"}]}`

func page(script string) []byte {
	return []byte(fmt.Sprintf(`<!DOCTYPE html><html><head><title>Album</title>
<script>
//<![CDATA[
%s
//]]>
</script></head><body><div id="app"></div></body></html>`, script))
}

func withFragments(payload string) []byte {
	return page(`window.gon={};gon.media=` + payload +
		`;gon.selfUserId="123456";gon.familyUserIdToColorMap={"11":"#ff0000","12":"#00ff00"};`)
}

func TestExtract(t *testing.T) {
	p, err := Extract(withFragments(samplePayload))
	require.NoError(t, err)

	assert.True(t, p.HasNext)
	assert.False(t, p.HasPrev)
	assert.Equal(t, 1, p.CurrentPage)
	require.Len(t, p.MediaFiles, 2)
	assert.Equal(t, "AAA", p.MediaFiles[0].UUID)
	assert.Equal(t, "https://cdn.test/a?sig=1&exp=2", p.MediaFiles[0].ExpiringURL)
	assert.Equal(t, "BBB", p.MediaFiles[1].UUID)
	assert.True(t, p.MediaFiles[1].HasLocation())
	assert.Equal(t, -33.9, *p.MediaFiles[1].Latitude)
}

func TestPayloadRoundTrip(t *testing.T) {
	injected, err := Payload(withFragments(samplePayload))
	require.NoError(t, err)

	plain, err := Payload(page(`window.gon={};gon.media=` + samplePayload + `;`))
	require.NoError(t, err)

	assert.Equal(t, samplePayload, string(injected))
	assert.Equal(t, string(plain), string(injected))

	var fromInjected, fromPlain models.ListingPage
	require.NoError(t, json.Unmarshal(injected, &fromInjected))
	require.NoError(t, json.Unmarshal(plain, &fromPlain))
	assert.Equal(t, fromPlain, fromInjected)
}

func TestPayloadFragmentOrder(t *testing.T) {
	body := page(`window.gon={};gon.media=` + samplePayload +
		`;gon.familyUserIdToColorMap={};gon.selfUserId="9"`)

	got, err := Payload(body)
	require.NoError(t, err)
	assert.Equal(t, samplePayload, string(got))
}

func TestPayloadWithoutTerminator(t *testing.T) {
	body := []byte(`<script>//<![CDATA[window.gon={};gon.media={"hasNext":false,"mediaFiles":[]}//]]`)
	p, err := Extract(body)
	require.NoError(t, err)
	assert.False(t, p.HasNext)
	assert.Empty(t, p.MediaFiles)
}

func TestExtractMissingCDATA(t *testing.T) {
	_, err := Extract([]byte(`<html><body>maintenance</body></html>`))
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeProtocolMismatch))
}

func TestExtractMalformed(t *testing.T) {
	_, err := Extract(page(`window.gon={};gon.media={"hasNext":tru`))
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeMalformedPayload))
}

func TestExtractIgnoresUnknownFields(t *testing.T) {
	payload := `{"hasNext":false,"totalCount":1,"mediaFiles":[` +
		`{"uuid":"CCC","mediaType":"photo","contentType":"image/png","tookAt":"2021-01-02T03:04:05Z","comments":[],"thumbnailSize":{"w":10}}]}`

	p, err := Extract(withFragments(payload))
	require.NoError(t, err)
	require.Len(t, p.MediaFiles, 1)
	assert.Equal(t, "CCC", p.MediaFiles[0].UUID)
}

func TestExtractorMethod(t *testing.T) {
	p, err := New().Extract(withFragments(samplePayload))
	require.NoError(t, err)
	assert.Len(t, p.MediaFiles, 2)
}
