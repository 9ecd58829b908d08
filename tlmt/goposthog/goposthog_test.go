package goposthog

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMachineIdentityIsStable(t *testing.T) {
	a := machineIdentity()
	b := machineIdentity()

	require.Len(t, a.ID, 32)
	require.Equal(t, a.ID, b.ID)
	require.Contains(t, a.Meta, "os")
	require.Contains(t, a.Meta, "num_cpu")
}
