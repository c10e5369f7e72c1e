package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsAllowedIP(t *testing.T) {
	allowed, err := ParsePrefixes([]string{"10.0.0.0/8", " 127.0.0.1/32", "::1/128"})
	require.NoError(t, err)

	assert.True(t, IsAllowedIP("10.1.2.3", allowed))
	assert.True(t, IsAllowedIP("127.0.0.1:54321", allowed))
	assert.True(t, IsAllowedIP("[::1]:8080", allowed))
	assert.True(t, IsAllowedIP("::ffff:10.0.0.5", allowed), "IPv4-mapped addresses match IPv4 prefixes")
	assert.False(t, IsAllowedIP("192.168.0.1", allowed))
	assert.False(t, IsAllowedIP("garbage", allowed))
	assert.False(t, IsAllowedIP("10.0.0.1", nil))
}

func TestParsePrefixesRejectsBareAddress(t *testing.T) {
	_, err := ParsePrefixes([]string{"10.0.0.1"})
	assert.Error(t, err)
}
