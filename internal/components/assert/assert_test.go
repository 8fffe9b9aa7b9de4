package assert

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type impl struct{}

func (*impl) Do() {}

type doer interface{ Do() }

func TestNotNil(t *testing.T) {
	var typedNil *impl
	var iface doer = typedNil

	require.Panics(t, func() { NotNil(nil) })
	require.Panics(t, func() { NotNil(iface) })
	require.Panics(t, func() { NotNil(map[string]int(nil)) })
	require.NotPanics(t, func() { NotNil(&impl{}) })
	require.NotPanics(t, func() { NotNil(struct{}{}) })
}

func TestNotEmptyStr(t *testing.T) {
	require.Panics(t, func() { NotEmptyStr("") })
	require.NotPanics(t, func() { NotEmptyStr("a") })
}
