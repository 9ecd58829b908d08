package gmaps

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCoordinatesFromURL(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want LatLng
		ok   bool
	}{
		{
			name: "at pattern",
			in:   "https://www.google.com/maps/place/X/@-33.8688197,151.2092955,17z/data=!3m1",
			want: LatLng{Lat: -33.8688197, Lng: 151.2092955},
			ok:   true,
		},
		{
			name: "data pattern",
			in:   "https://www.google.com/maps/place/X/data=!4m7!3m6!1s0x6b12:0x5017!8m2!3d-37.8136!4d144.9631!16s%2Fg%2F11",
			want: LatLng{Lat: -37.8136, Lng: 144.9631},
			ok:   true,
		},
		{
			name: "escaped data pattern",
			in:   "https://www.google.com/maps/place/X/data=%214m7%213d-27.4698%214d153.0251",
			want: LatLng{Lat: -27.4698, Lng: 153.0251},
			ok:   true,
		},
		{
			name: "out of range",
			in:   "https://www.google.com/maps/@123.5,200.1,12z",
			ok:   false,
		},
		{
			name: "none",
			in:   "https://www.google.com/maps/place/X",
			ok:   false,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := CoordinatesFromURL(tc.in)
			require.Equal(t, tc.ok, ok)
			require.Equal(t, tc.want, got)
		})
	}
}

func TestExtractCoordinatesFallbacks(t *testing.T) {
	t.Run("original reference", func(t *testing.T) {
		page := newFakePage()
		page.url = "https://maps.test/maps/place/X"

		r := newTestRun(page, nil)

		lat, lng := r.extractCoordinates("https://maps.test/maps/place/X/data=!3d-31.95!4d115.86")
		require.Equal(t, "-31.95", lat)
		require.Equal(t, "115.86", lng)
	})

	t.Run("og image center", func(t *testing.T) {
		page := newFakePage()
		page.url = "https://maps.test/maps/place/X"
		page.content = `<html><head><meta property="og:image" content="https://maps.test/staticmap?center=-34.9285%2C138.6007&amp;zoom=15"></head></html>`

		r := newTestRun(page, nil)

		lat, lng := r.extractCoordinates(page.url)
		require.Equal(t, "-34.9285", lat)
		require.Equal(t, "138.6007", lng)
	})

	t.Run("ld json geo", func(t *testing.T) {
		page := newFakePage()
		page.url = "https://maps.test/maps/place/X"
		page.content = `<html><head><script type="application/ld+json">{"@type":"LocalBusiness","geo":{"latitude":"-42.8821","longitude":147.3272}}</script></head></html>`

		r := newTestRun(page, nil)

		lat, lng := r.extractCoordinates(page.url)
		require.Equal(t, "-42.8821", lat)
		require.Equal(t, "147.3272", lng)
	})

	t.Run("itemprop meta", func(t *testing.T) {
		page := newFakePage()
		page.url = "https://maps.test/maps/place/X"
		page.content = `<html><body><meta itemprop="latitude" content="-12.4634"><meta itemprop="longitude" content="130.8456"></body></html>`

		r := newTestRun(page, nil)

		lat, lng := r.extractCoordinates(page.url)
		require.Equal(t, "-12.4634", lat)
		require.Equal(t, "130.8456", lng)
	})

	t.Run("nothing", func(t *testing.T) {
		page := newFakePage()
		page.url = "https://maps.test/maps/place/X"

		r := newTestRun(page, nil)

		lat, lng := r.extractCoordinates(page.url)
		require.Equal(t, NotFound, lat)
		require.Equal(t, NotFound, lng)
	})
}

func TestDecodePlusCode(t *testing.T) {
	full, ok := DecodePlusCode("4RRH46J5+FP", nil)
	require.True(t, ok)
	require.InDelta(t, -33.8688, full.Lat, 0.01)
	require.InDelta(t, 151.2093, full.Lng, 0.01)

	_, ok = DecodePlusCode("46J5+FP", nil)
	require.False(t, ok)

	short, ok := DecodePlusCode("46J5+FP", &LatLng{Lat: -33.87, Lng: 151.21})
	require.True(t, ok)
	require.InDelta(t, full.Lat, short.Lat, 1e-6)
	require.InDelta(t, full.Lng, short.Lng, 1e-6)
}

func TestExtractCoordinatesPlusCode(t *testing.T) {
	page := newFakePage()
	page.url = "https://maps.test/maps/place/X"
	page.content = `<html><body><button data-item-id="oloc"><div>46J5+FP Sydney New South Wales</div></button></body></html>`

	r := newTestRun(page, nil)
	r.center = &LatLng{Lat: -33.87, Lng: 151.21}

	lat, lng := r.extractCoordinates(page.url)
	require.NotEqual(t, NotFound, lat)
	require.NotEqual(t, NotFound, lng)
}
