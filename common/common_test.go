package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIdsAreNonZero(t *testing.T) {
	assert := assert.New(t)
	seen := make(map[VersionId]bool)
	for i := 0; i < 1000; i++ {
		v := NewVersionId()
		assert.NotEqual(NULLVERSION, v)
		assert.False(seen[v], "version ids should not repeat")
		seen[v] = true
	}
	assert.NotEqual(NULLOBJECT, NewObjectId())
	assert.NotEqual(NULLTXN, NewTransactionId())
}

func TestParseIds(t *testing.T) {
	assert := assert.New(t)
	o := ObjectId(0xdeadbeef)
	assert.Equal("00000000deadbeef", o.String())
	p, err := ParseObjectId(o.String())
	assert.NoError(err)
	assert.Equal(o, p)

	v, err := ParseVersionId("ff")
	assert.NoError(err)
	assert.Equal(VersionId(255), v)

	_, err = ParseObjectId("not-hex")
	assert.Error(err)
}
