package logging

import (
	"errors"
	"testing"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetLevel(t *testing.T) {
	assert.Equal(t, logrus.DebugLevel, GetLevel("debug"))
	assert.Equal(t, logrus.WarnLevel, GetLevel("WARN"))
	assert.Equal(t, logrus.TraceLevel, GetLevel(" trace "))
	assert.Equal(t, logrus.ErrorLevel, GetLevel("error"))
	assert.Equal(t, logrus.InfoLevel, GetLevel("nonsense"))
	assert.Equal(t, logrus.InfoLevel, GetLevel(""))
}

func TestSentryLevel(t *testing.T) {
	assert.Equal(t, sentry.LevelFatal, sentryLevel(logrus.PanicLevel))
	assert.Equal(t, sentry.LevelFatal, sentryLevel(logrus.FatalLevel))
	assert.Equal(t, sentry.LevelError, sentryLevel(logrus.ErrorLevel))
	assert.Equal(t, sentry.LevelWarning, sentryLevel(logrus.WarnLevel))
	assert.Equal(t, sentry.LevelDebug, sentryLevel(logrus.TraceLevel))
}

func TestSentryHook_Fire(t *testing.T) {
	var captured []*sentry.Event
	client, err := sentry.NewClient(sentry.ClientOptions{
		Dsn:       "https://public@sentry.example.com/1",
		Transport: sentry.NewHTTPSyncTransport(),
		BeforeSend: func(event *sentry.Event, _ *sentry.EventHint) *sentry.Event {
			captured = append(captured, event)
			// never leave the test process
			return nil
		},
	})
	require.NoError(t, err)

	hook := NewSentryHook("test", []logrus.Level{logrus.ErrorLevel})
	hook.hub = sentry.NewHub(client, sentry.NewScope())
	assert.Equal(t, []logrus.Level{logrus.ErrorLevel}, hook.Levels())

	logger := logrus.New()
	entry := logger.WithError(errors.New("pool exhausted")).WithField("route", "list-workouts")
	entry.Level = logrus.ErrorLevel
	entry.Message = "failed to list workouts"
	entry.Time = time.Now()

	require.NoError(t, hook.Fire(entry))
	require.Len(t, captured, 1)

	ev := captured[0]
	assert.Equal(t, "failed to list workouts", ev.Message)
	assert.Equal(t, sentry.LevelError, ev.Level)
	assert.Equal(t, "test", ev.Environment)
	assert.Equal(t, "list-workouts", ev.Extra["route"])
	require.Len(t, ev.Exception, 1)
	assert.Equal(t, "pool exhausted", ev.Exception[0].Value)
}
