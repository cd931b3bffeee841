package parser

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/lci/internal/types"
)

func TestEngineRunCapturesDirectCall(t *testing.T) {
	q, err := Engine()
	require.NoError(t, err)

	c, err := NewCache()
	require.NoError(t, err)
	defer c.Close()

	src := []byte(`const { t } = useTranslation("common"); t("hello.world", { count });`)
	tree := c.Parse(types.FileID(1), types.LangJS, src, nil)
	require.NotNil(t, tree)

	matches := q.Run(tree, src)
	require.NotEmpty(t, matches)

	var sawHookCall, sawDirectCall bool
	for _, row := range matches {
		for _, m := range row {
			switch m.Capture {
			case "hook.call":
				sawHookCall = true
			case "call.key":
				sawDirectCall = true
				require.Equal(t, "hello.world", Text(m.Node, src))
			}
		}
	}
	require.True(t, sawHookCall, "expected to capture the useTranslation hook call")
	require.True(t, sawDirectCall, "expected to capture the direct t() call's key literal")
}

func TestEngineRunOnEmptyTreeReturnsNothing(t *testing.T) {
	q, err := Engine()
	require.NoError(t, err)
	require.Empty(t, q.Run(nil, nil))
}
