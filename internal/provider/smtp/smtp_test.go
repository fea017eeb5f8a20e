package smtp

import (
	"testing"

	"otp-auth/pkg/utils"

	"github.com/stretchr/testify/assert"
)

func TestNewUnknownAuth(t *testing.T) {
	_, err := New(utils.EmailConfig{Host: "localhost", Port: 25, Auth: "kerberos"})
	assert.ErrorContains(t, err, "unknown SMTP auth type")
}
