package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPreviewShortContentUnchanged(t *testing.T) {
	assert.Equal(t, "nice streak!", preview("nice streak!"))
}

func TestPreviewLongContentTruncated(t *testing.T) {
	long := strings.Repeat("a", 200)
	got := preview(long)
	assert.Len(t, got, 83)
	assert.True(t, strings.HasSuffix(got, "..."))
}
