package events

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/etnz/pricebook"
	"github.com/etnz/pricebook/date"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type message struct {
	subject string
	data    []byte
}

type fakePublisher struct {
	sent []message
	err  error
}

func (f *fakePublisher) Publish(subj string, data []byte) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, message{subj, data})
	return nil
}

func report() *pricebook.Report {
	day := date.New(2025, 3, 14)
	return &pricebook.Report{
		RunID:       "run-1",
		Date:        day,
		Instruments: 4,
		Active:      3,
		Skipped:     1,
		Priced:      2,
		BySource:    map[pricebook.Source]int{pricebook.Bulk: 1, pricebook.NAV: 1},
		Missing:     []pricebook.MissingRecord{{Date: day, Identifier: "INE467B01029", Symbol: "TCS.NS"}},
		Suppressed:  2,
		Written:     true,
		Duration:    2 * time.Second,
	}
}

func TestNATSNotifier(t *testing.T) {
	pub := &fakePublisher{}
	n := NewNATSNotifier(pub, "", "pricebook")
	require.NoError(t, n.Notify(context.Background(), report()))
	require.Len(t, pub.sent, 1)
	assert.Equal(t, DefaultSubject, pub.sent[0].subject)

	var env Envelope
	require.NoError(t, json.Unmarshal(pub.sent[0].data, &env))
	assert.Equal(t, "pricebook.run.completed", env.EventType)
	assert.Equal(t, "pricebook", env.Source)
	assert.Equal(t, RunSummary{
		RunID:       "run-1",
		Date:        "2025-03-14",
		Instruments: 4,
		Active:      3,
		Skipped:     1,
		Priced:      2,
		BySource:    map[string]int{"bulk": 1, "nav": 1},
		Missing:     1,
		Suppressed:  2,
		Written:     true,
		DurationMS:  2000,
	}, env.Payload)
}

func TestNATSNotifierError(t *testing.T) {
	n := NewNATSNotifier(&fakePublisher{err: errors.New("nats: connection closed")}, "custom.subject", "pricebook")
	err := n.Notify(context.Background(), report())
	assert.ErrorContains(t, err, "custom.subject")
}

func TestSlackNotifier(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	s := &SlackNotifier{URL: srv.URL}
	require.NoError(t, s.Notify(context.Background(), report()))
	assert.Equal(t, "pricebook 2025-03-14: 2 priced, 1 missing, 0 stale, 2 suppressed", got["text"])
}

func TestSlackNotifierError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "invalid_token", http.StatusForbidden)
	}))
	defer srv.Close()

	s := &SlackNotifier{URL: srv.URL}
	assert.Error(t, s.Notify(context.Background(), report()))
}

func TestSlackTextNothingWritten(t *testing.T) {
	r := report()
	r.Written = false
	assert.Contains(t, SlackText(r), "(nothing written)")
}
