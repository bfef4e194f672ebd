package affiliate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSampleProductFor(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"Jasmine Rice 5lb", "B00I8GXBVE"},
		{"whole wheat pasta", "B077H8P6V3"},
		{"Digital Kitchen Scale", "B004164SRA"},
		{"glass food storage containers", "B00LN810PM"},
		{"unknown gadget", "B00I8GXBVE"},
		{"", "B00I8GXBVE"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SampleProductFor(tt.name).ASIN)
		})
	}
}

func TestSampleProductLink(t *testing.T) {
	l := newTestLinker(t)

	link, err := l.SampleProductLink("kitchen scale")
	require.NoError(t, err)
	assert.Equal(t, "https://www.amazon.com/dp/B004164SRA/ref=nosim?tag=freshsense-20&ref=as_li_ss_tl", link)
	assert.True(t, l.ValidateAffiliateLink(link).IsValid)

	products := SampleProducts()
	products[0].ASIN = "mutated"
	assert.Equal(t, "B00I8GXBVE", SampleProducts()[0].ASIN)
}

func TestQuickTrackingCheck(t *testing.T) {
	assert.True(t, newTestLinker(t).QuickTrackingCheck())

	l := &Linker{cfg: DefaultConfig()}
	l.cfg.Tag = ""
	assert.False(t, l.QuickTrackingCheck())
}
