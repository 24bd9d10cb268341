package comment

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractMentions(t *testing.T) {
	assert.Nil(t, ExtractMentions("no mentions here"))
	assert.Equal(t, []string{"ana"}, ExtractMentions("nice one @ana!"))
	assert.Equal(t, []string{"ana", "bo_b"}, ExtractMentions("@ana meet @bo_b and @ana again"))
}
