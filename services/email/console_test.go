package emailsvc

import (
	"bytes"
	"io"
	"log"
	"net/mail"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/rapor/core"
	logsvc "github.com/trezcool/rapor/services/logger"
)

func newTestConf() *core.Config {
	return &core.Config{AppName: "Rapor", DefaultFromEmail: "Rapor <noreply@sekolah.id>", TestMode: true}
}

func TestConsoleService_SendMessages(t *testing.T) {
	conf := newTestConf()
	logger := logsvc.NewRollbarLogger(log.New(io.Discard, "", 0), conf)
	logger.Enable(false)
	svc := NewConsoleServiceMock(conf, logger)

	var out bytes.Buffer
	svc.out = log.New(&out, "", 0)

	withAttachment := &core.EmailMessage{
		To:      []mail.Address{{Name: "Wali Kelas", Address: "wali@sekolah.id"}},
		Subject: "Rekap",
		BodyStr: "Terlampir rekap.",
	}
	require.NoError(t, withAttachment.Attach(strings.NewReader("xlsx-bytes"), "rekap.xlsx", "application/octet-stream"))

	svc.SendMessages(
		withAttachment,
		&core.EmailMessage{BodyStr: "no recipient"},
		&core.EmailMessage{To: []mail.Address{{Address: "a@b.c"}}}, // no content
	)

	sent := svc.SentMessages()
	require.Len(t, sent, 1)
	assert.Equal(t, "Rekap", sent[0].Subject)

	body := out.String()
	assert.Contains(t, body, `From: "Rapor" <noreply@sekolah.id>`)
	assert.Contains(t, body, "Subject: [Rapor] Rekap")
	assert.Contains(t, body, `To: "Wali Kelas" <wali@sekolah.id>`)
	assert.Contains(t, body, "Terlampir rekap.")
	assert.Contains(t, body, `attachment; filename="rekap.xlsx"`)
}

func TestConsoleService_Wait(t *testing.T) {
	conf := newTestConf()
	logger := logsvc.NewRollbarLogger(log.New(io.Discard, "", 0), conf)
	logger.Enable(false)
	svc := NewConsoleService(conf, logger)
	svc.out = log.New(io.Discard, "", 0)

	for i := 0; i < 3; i++ {
		svc.SendMessages(&core.EmailMessage{To: []mail.Address{{Address: "wali@sekolah.id"}}, BodyStr: "rekap"})
	}
	svc.Wait()
	assert.Len(t, svc.SentMessages(), 3)
}

func TestDefaultFrom(t *testing.T) {
	assert.Equal(t, mail.Address{Name: "Rapor", Address: "noreply@sekolah.id"}, defaultFrom(newTestConf()))
	assert.Equal(t,
		mail.Address{Name: "Rapor", Address: "noreply@localhost"},
		defaultFrom(&core.Config{AppName: "Rapor", DefaultFromEmail: "noreply@localhost"}),
	)
}

func TestSendgridService_prepare(t *testing.T) {
	svc := NewSendgridService(newTestConf(), nil)
	msg := core.EmailMessage{
		To:          []mail.Address{{Name: "Wali", Address: "wali@sekolah.id"}},
		Cc:          []mail.Address{{Address: "kepsek@sekolah.id"}},
		Subject:     "Rekap",
		TextContent: "text",
		HTMLContent: "<p>html</p>",
	}
	require.NoError(t, msg.Attach(strings.NewReader("data"), "rekap.xlsx", "application/octet-stream"))

	m := svc.prepare(msg)
	require.Len(t, m.Personalizations, 1)
	assert.Equal(t, "[Rapor] Rekap", m.Personalizations[0].Subject)
	assert.Equal(t, "wali@sekolah.id", m.Personalizations[0].To[0].Address)
	assert.Equal(t, "kepsek@sekolah.id", m.Personalizations[0].CC[0].Address)
	assert.Equal(t, "noreply@sekolah.id", m.From.Address)
	require.Len(t, m.Content, 2)
	require.Len(t, m.Attachments, 1)
	assert.Equal(t, "rekap.xlsx", m.Attachments[0].Filename)
}
