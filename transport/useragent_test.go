package transport

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUserAgentWithoutCallerName(t *testing.T) {
	ua := UserAgent("")
	assert.Regexp(t, `^chgo/[0-9.]+ \([a-z0-9]+\) go/`, ua)
}

func TestUserAgentWithCallerName(t *testing.T) {
	ua := UserAgent("billing-svc")
	assert.Regexp(t, `^billing-svc chgo/[0-9.]+ \(`, ua)
}
