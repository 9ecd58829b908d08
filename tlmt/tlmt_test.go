package tlmt_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gosom/selfstorage-scraper/tlmt"
	"github.com/gosom/selfstorage-scraper/tlmt/gonoop"
)

func TestNewEvent(t *testing.T) {
	ev := tlmt.NewEvent("area_run", nil)
	require.Equal(t, "area_run", ev.Name)
	require.NotNil(t, ev.Properties)

	ev.Properties["areas"] = 3

	noop := gonoop.New()
	require.NoError(t, noop.Send(context.Background(), ev))
	require.NoError(t, noop.Close())
}
