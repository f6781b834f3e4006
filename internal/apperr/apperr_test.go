package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTransportAndProtocolShareMessage(t *testing.T) {
	tr := Transport("list", errors.New("dial tcp: timeout"))
	pr := Protocol("list", errors.New("invalid character '<'"))

	assert.Equal(t, NetworkMessage, Message(tr))
	assert.Equal(t, NetworkMessage, Message(pr))
	assert.Equal(t, KindTransport, KindOf(tr))
	assert.Equal(t, KindProtocol, KindOf(pr))
}

func TestApplicationFallbackMessage(t *testing.T) {
	assert.Equal(t, RequestFailed, Message(Application("update", "")))
	assert.Equal(t, "Task not found", Message(Application("update", "Task not found")))
}

func TestKindOfWrapped(t *testing.T) {
	err := fmt.Errorf("sync: %w", Permission("update", nil))
	assert.Equal(t, KindPermission, KindOf(err))
	assert.Equal(t, KindUnknown, KindOf(errors.New("plain")))
	assert.Equal(t, "plain", Message(errors.New("plain")))
	assert.Equal(t, "", Message(nil))
}

func TestUploadKeepsServerMessage(t *testing.T) {
	err := Upload("upload", Application("upload", "File type not allowed"))
	assert.Equal(t, KindUpload, KindOf(err))
	assert.Equal(t, "File type not allowed", Message(err))

	err = Upload("upload", Transport("upload", errors.New("timeout")))
	assert.Equal(t, UploadFailed, Message(err))
}

func TestRemote(t *testing.T) {
	assert.True(t, Remote(Transport("x", nil)))
	assert.True(t, Remote(Protocol("x", nil)))
	assert.True(t, Remote(Application("x", "")))
	assert.False(t, Remote(Permission("x", nil)))
	assert.False(t, Remote(NotFound("x", TaskNotFound)))
	assert.False(t, Remote(errors.New("plain")))
}
