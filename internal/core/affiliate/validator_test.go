package affiliate

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateAffiliateLink(t *testing.T) {
	l := newTestLinker(t)

	tests := []struct {
		name       string
		url        string
		valid      bool
		correctTag bool
		hasRef     bool
		issues     int
	}{
		{
			name:       "generated fresh link",
			url:        "https://www.amazon.com/fresh/s?k=kale&ref=as_li_ss_tl&tag=freshsense-20",
			valid:      true,
			correctTag: true,
			hasRef:     true,
		},
		{
			name:       "any ref value is accepted",
			url:        "https://www.amazon.com/s?k=rice&ref=nb_sb_noss&tag=freshsense-20",
			valid:      true,
			correctTag: true,
			hasRef:     true,
		},
		{
			name:   "missing tag",
			url:    "https://www.amazon.com/s?k=rice&ref=x",
			hasRef: true,
			issues: 1,
		},
		{
			name:   "wrong tag",
			url:    "https://www.amazon.com/s?k=rice&ref=x&tag=someoneelse-20",
			hasRef: true,
			issues: 1,
		},
		{
			name:       "empty ref",
			url:        "https://www.amazon.com/s?k=rice&ref=&tag=freshsense-20",
			correctTag: true,
			issues:     1,
		},
		{
			name:       "foreign domain",
			url:        "https://example.com/s?ref=x&tag=freshsense-20",
			correctTag: true,
			hasRef:     true,
			issues:     1,
		},
		{
			name:       "undecodable ref value still counts as present",
			url:        "https://www.amazon.com/s?k=rice&ref=%zz&tag=freshsense-20",
			valid:      true,
			correctTag: true,
			hasRef:     true,
		},
		{
			name:   "undecodable tag is reported as incorrect",
			url:    "https://www.amazon.com/s?k=rice&ref=x&tag=%zz",
			hasRef: true,
			issues: 1,
		},
		{
			name:   "everything wrong",
			url:    "https://example.com/s?k=rice",
			issues: 3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := l.ValidateAffiliateLink(tt.url)
			assert.Equal(t, tt.valid, got.IsValid)
			assert.Equal(t, tt.correctTag, got.HasCorrectTag)
			assert.Equal(t, tt.hasRef, got.HasRefParameter)
			assert.Len(t, got.Issues, tt.issues)
		})
	}
}

func TestValidateAffiliateLink_InvalidFormat(t *testing.T) {
	l := newTestLinker(t)

	for _, raw := range []string{"", "not a url", "://missing-scheme", "http://[::1", "/relative/path?tag=freshsense-20"} {
		t.Run(raw, func(t *testing.T) {
			got := l.ValidateAffiliateLink(raw)
			assert.False(t, got.IsValid)
			assert.False(t, got.HasCorrectTag)
			assert.False(t, got.HasRefParameter)
			assert.Equal(t, []string{IssueInvalidURL}, got.Issues)
		})
	}
}

func TestLenientQuery(t *testing.T) {
	q := lenientQuery("k=olive%20oil&ref=%zz&tag=freshsense-20&&flag&k=2")
	assert.Equal(t, []string{"olive oil", "2"}, q["k"])
	assert.Equal(t, "%zz", q.Get("ref"))
	assert.Equal(t, "freshsense-20", q.Get("tag"))
	assert.True(t, q.Has("flag"))
	assert.Empty(t, q.Get("flag"))
	assert.Empty(t, lenientQuery(""))
}
