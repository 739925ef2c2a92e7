package pbar_test

import (
	"bytes"
	"testing"

	"github.com/ostafen/gifkit/pkg/pbar"
	"github.com/stretchr/testify/require"
)

func TestProgressBar(t *testing.T) {
	var buf bytes.Buffer
	p := pbar.NewProgressBarState(&buf, 2)

	p.Advance(1024)
	require.Contains(t, buf.String(), "(1/2 frames)")
	require.Contains(t, buf.String(), " 50%")

	p.Advance(1024)
	require.Contains(t, buf.String(), "[====================] 100% (2/2 frames) | 2KB written")

	p.Finish()
	require.Equal(t, byte('\n'), buf.Bytes()[buf.Len()-1])
}
