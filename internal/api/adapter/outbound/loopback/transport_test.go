package loopback

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/anthanhphan/go-channel-file-storage/internal/api/port"
	"github.com/anthanhphan/go-channel-file-storage/pkg/idgen"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTransport(t *testing.T) *Transport {
	t.Helper()
	ids, err := idgen.New(1, nil)
	require.NoError(t, err)
	return New("loopback", ids)
}

func TestTransport_RoundTrip(t *testing.T) {
	tr := newTransport(t)
	ctx := context.Background()
	content := bytes.Repeat([]byte("x"), 2048)

	msg, err := tr.SendDocument(ctx, "report.pdf", content)
	require.NoError(t, err)
	require.NotNil(t, msg.Attachment)
	assert.Equal(t, "report.pdf", msg.Attachment.FileName)
	assert.Equal(t, int64(2048), msg.Attachment.FileSize)
	assert.Equal(t, "application/pdf", msg.Attachment.MimeType)

	url, err := tr.FileURL(ctx, msg.Attachment.FileID)
	require.NoError(t, err)

	var buf bytes.Buffer
	n, err := tr.Fetch(ctx, url, &buf)
	require.NoError(t, err)
	assert.Equal(t, int64(2048), n)
	assert.Equal(t, content, buf.Bytes())
}

func TestTransport_DeleteTwice(t *testing.T) {
	tr := newTransport(t)
	ctx := context.Background()

	msg, err := tr.SendDocument(ctx, "a.txt", []byte("a"))
	require.NoError(t, err)

	require.NoError(t, tr.DeleteMessage(ctx, msg.MessageID))
	err = tr.DeleteMessage(ctx, msg.MessageID)
	assert.True(t, errors.Is(err, port.ErrNotFound))

	_, err = tr.FileURL(ctx, msg.Attachment.FileID)
	assert.True(t, errors.Is(err, port.ErrNotFound))
}

func TestTransport_HistoryWindow(t *testing.T) {
	tr := newTransport(t)
	ctx := context.Background()

	var ids []int64
	for _, name := range []string{"a", "b", "c"} {
		msg, err := tr.SendDocument(ctx, name, []byte(name))
		require.NoError(t, err)
		ids = append(ids, msg.MessageID)
	}

	msgs, err := tr.History(ctx, 2)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, ids[1], msgs[0].MessageID)
	assert.Equal(t, ids[2], msgs[1].MessageID)
}

func TestTransport_FailureHook(t *testing.T) {
	tr := newTransport(t)
	boom := errors.New("connection reset")
	tr.SetFailureHook(func(op string) error {
		if op == "deleteMessage" {
			return boom
		}
		return nil
	})

	err := tr.DeleteMessage(context.Background(), 1)
	assert.True(t, errors.Is(err, boom))
	assert.True(t, errors.Is(err, port.ErrDeleteFailed))
}
